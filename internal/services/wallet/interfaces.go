package wallet

import (
	"context"

	"stagepay/internal/models"
	"stagepay/internal/services/transfer"
)

// Service is the wallet store facade. Balances themselves are mutated
// only by the transfer engine; this service owns lookup, lazy creation
// and the treasury-backed deposit/withdrawal flows.
type Service interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error)
	GetBalance(ctx context.Context, userID uint) (int64, error)

	Deposit(ctx context.Context, userID uint, amountCents int64) (*transfer.Result, error)
	Withdraw(ctx context.Context, userID uint, amountCents int64) (*transfer.Result, error)

	History(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error)
}

// Cache is the read-cache used for wallet lookups.
type Cache interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// Config holds wallet service configuration.
type Config struct {
	DefaultCurrency    string
	TreasuryUserID     uint
	MaxDepositCents    int64
	MaxWithdrawalCents int64
}
