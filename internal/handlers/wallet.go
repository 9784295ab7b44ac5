package handlers

import (
	"errors"
	"strconv"

	"stagepay/internal/models"
	"stagepay/internal/services/transfer"
	"stagepay/internal/services/wallet"
	"stagepay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// extractUserClaims is a helper function to reduce duplication
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetOrCreate(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "Failed to get wallet")
	}

	return utils.Success(c, fiber.Map{
		"wallet": w,
	})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.AmountCents <= 0 {
		return utils.BadRequest(c, "amount_cents must be greater than 0")
	}

	result, err := h.walletService.Deposit(c.Context(), claims.UserID, input.AmountCents)
	if err != nil {
		return walletError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":        "Deposit successful",
		"transaction_id": result.TransactionID,
		"balance_cents":  result.ToBalanceAfterCents,
	})
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.AmountCents <= 0 {
		return utils.BadRequest(c, "amount_cents must be greater than 0")
	}

	result, err := h.walletService.Withdraw(c.Context(), claims.UserID, input.AmountCents)
	if err != nil {
		return walletError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"message":        "Withdrawal successful",
		"transaction_id": result.TransactionID,
		"balance_cents":  result.FromBalanceAfterCents,
	})
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := h.walletService.History(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to get transaction history")
	}

	return utils.Success(c, fiber.Map{
		"transactions": entries,
		"limit":        limit,
		"offset":       offset,
	})
}

func walletError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount):
		return utils.BadRequest(c, "Invalid amount")
	case errors.Is(err, wallet.ErrLimitExceeded):
		return utils.BadRequest(c, "Amount exceeds the allowed limit")
	case errors.Is(err, transfer.ErrInsufficientFunds):
		return utils.UnprocessableEntity(c, "Insufficient funds")
	case errors.Is(err, transfer.ErrWalletLocked):
		return utils.UnprocessableEntity(c, "Wallet is not active")
	default:
		return utils.InternalError(c, err.Error())
	}
}
