package handlers

import (
	"errors"

	"stagepay/internal/services/ledger"
	"stagepay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type LedgerHandler struct {
	ledgerService ledger.Service
}

func NewLedgerHandler(ledgerService ledger.Service) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// GetTransaction returns the paired ledger entries for a transaction id.
func (h *LedgerHandler) GetTransaction(c *fiber.Ctx) error {
	txID := c.Params("txid")
	if txID == "" {
		return utils.BadRequest(c, "transaction id is required")
	}

	entries, err := h.ledgerService.EntriesByTransaction(c.Context(), txID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return utils.NotFound(c, "Transaction not found")
		}
		return utils.InternalError(c, "Failed to load transaction")
	}

	return utils.Success(c, fiber.Map{
		"transaction_id": txID,
		"entries":        entries,
	})
}

// VerifyTransaction reports whether a transaction's entries balance to zero.
func (h *LedgerHandler) VerifyTransaction(c *fiber.Ctx) error {
	txID := c.Params("txid")
	if txID == "" {
		return utils.BadRequest(c, "transaction id is required")
	}

	balanced, err := h.ledgerService.VerifyTransaction(c.Context(), txID)
	if err != nil {
		return utils.InternalError(c, "Failed to verify transaction")
	}

	return utils.Success(c, fiber.Map{
		"transaction_id": txID,
		"balanced":       balanced,
	})
}
