package repositories

import (
	"context"

	"stagepay/internal/models"
)

// WalletRepository defines the interface for wallet-related database
// operations. LockByUserID and ApplyDelta are only meaningful inside a
// DataStore.ExecuteInTransaction scope; the row lock is released when
// that transaction ends.
type WalletRepository interface {
	Create(wallet *models.Wallet) error
	GetByID(id uint) (*models.Wallet, error)
	GetByUserID(userID uint) (*models.Wallet, error)

	// LockByUserID reads the wallet row under SELECT ... FOR UPDATE.
	LockByUserID(userID uint) (*models.Wallet, error)

	// ApplyDelta adjusts both balances by the given amounts. The update
	// carries a non-negative guard; zero rows affected is ErrIntegrity.
	ApplyDelta(walletID uint, deltaAvailable, deltaTotal int64) error

	// Reconciliation and reporting
	GetTotalBalance(ctx context.Context) (int64, error)
	CountByStatus(status string) (int64, error)
}
