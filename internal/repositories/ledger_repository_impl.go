package repositories

import (
	"context"
	"fmt"

	"stagepay/internal/models"

	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a ledger repository over a gorm connection.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(entry *models.LedgerEntry) error {
	if result := r.db.Create(entry); result.Error != nil {
		return fmt.Errorf("failed to append ledger entry: %w", result.Error)
	}
	return nil
}

func (r *ledgerRepository) ByTransaction(transactionID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) SumByTransaction(transactionID string) (int64, error) {
	var sum int64
	err := r.db.Model(&models.LedgerEntry{}).
		Where("transaction_id = ?", transactionID).
		Select("COALESCE(SUM(CASE WHEN entry_type = ? THEN amount_cents ELSE -amount_cents END), 0)",
			models.EntryTypeCredit).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}

func (r *ledgerRepository) HistoryByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet history: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) SumByUserAndType(ctx context.Context, userID uint, entryType, transactionType string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ? AND entry_type = ? AND transaction_type = ?", userID, entryType, transactionType).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}
