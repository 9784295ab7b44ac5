package repositories

import (
	"context"
	"fmt"
	"time"

	"stagepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a wallet repository over a gorm connection.
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	if result := r.db.Create(wallet); result.Error != nil {
		return fmt.Errorf("failed to create wallet: %w", result.Error)
	}
	return nil
}

func (r *walletRepository) GetByID(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.First(&wallet, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) LockByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) ApplyDelta(walletID uint, deltaAvailable, deltaTotal int64) error {
	// The WHERE guards keep both balances non-negative even if a caller
	// skipped the pre-flight funds check. Zero rows affected here means
	// the row vanished or a balance guard fired under a held lock.
	result := r.db.Model(&models.Wallet{}).
		Where("id = ? AND available_balance_cents + ? >= 0 AND total_balance_cents + ? >= 0",
			walletID, deltaAvailable, deltaTotal).
		Updates(map[string]interface{}{
			"available_balance_cents": gorm.Expr("available_balance_cents + ?", deltaAvailable),
			"total_balance_cents":     gorm.Expr("total_balance_cents + ?", deltaTotal),
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to apply balance delta: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIntegrity
	}
	return nil
}

func (r *walletRepository) GetTotalBalance(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Select("COALESCE(SUM(total_balance_cents), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get total balance: %w", err)
	}
	return total, nil
}

func (r *walletRepository) CountByStatus(status string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Wallet{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}
	return count, nil
}
