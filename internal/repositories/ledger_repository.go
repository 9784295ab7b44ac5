package repositories

import (
	"context"

	"stagepay/internal/models"
)

// LedgerRepository is the append-only audit store. Append is a dumb
// single-entry write; callers write both halves of a transfer with a
// shared transaction id inside one atomic scope. Nothing is ever
// updated or deleted post-hoc.
type LedgerRepository interface {
	Append(entry *models.LedgerEntry) error
	ByTransaction(transactionID string) ([]models.LedgerEntry, error)

	// SumByTransaction returns credits minus debits for a transaction.
	// Zero for every committed transaction is the core reconciliation
	// invariant; it is asserted by tests, not enforced at write time.
	SumByTransaction(transactionID string) (int64, error)

	HistoryByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error)
	SumByUserAndType(ctx context.Context, userID uint, entryType, transactionType string) (int64, error)
}
