package wallet

import (
	"context"
	"errors"
	"fmt"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
	"stagepay/internal/services/transfer"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	store       repositories.DataStore
	cache       Cache
	transferSvc transfer.Service
	config      Config
	logger      *zap.Logger
}

// NewService creates a new wallet service.
func NewService(store repositories.DataStore, cache Cache, transferSvc transfer.Service, config Config, logger *zap.Logger) Service {
	if store == nil {
		panic("store is required")
	}
	if transferSvc == nil {
		panic("transfer service is required")
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.MaxDepositCents == 0 {
		config.MaxDepositCents = DefaultMaxDepositCents
	}
	if config.MaxWithdrawalCents == 0 {
		config.MaxWithdrawalCents = DefaultMaxWithdrawalCents
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:       store,
		cache:       cache,
		transferSvc: transferSvc,
		config:      config,
		logger:      logger,
	}
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if s.cache != nil {
		if wallet, err := s.cache.GetWallet(ctx, userID); err == nil {
			return wallet, nil
		}
	}

	wallet, err := s.store.Wallets().GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetWallet(ctx, wallet); err != nil {
			s.logger.Warn("failed to cache wallet", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return wallet, nil
}

// GetOrCreate returns the user's wallet, creating it lazily on the
// first financial interaction. Wallets are never deleted afterwards.
func (s *service) GetOrCreate(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	wallet = &models.Wallet{
		UserID:   userID,
		Currency: s.config.DefaultCurrency,
		Status:   models.WalletStatusActive,
	}
	if err := s.store.Wallets().Create(wallet); err != nil {
		// A concurrent first interaction can win the insert; the
		// unique user_id index turns the loser into a re-read.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.GetWallet(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint) (int64, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.AvailableBalanceCents, nil
}

// Deposit credits the user's wallet from the platform treasury. The
// treasury counter-entry keeps the global double-entry invariant intact
// without touching card rails.
func (s *service) Deposit(ctx context.Context, userID uint, amountCents int64) (*transfer.Result, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if amountCents > s.config.MaxDepositCents {
		return nil, ErrLimitExceeded
	}
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	res, err := s.transferSvc.Transfer(ctx, transfer.Request{
		FromUserID:    s.config.TreasuryUserID,
		ToUserID:      userID,
		AmountCents:   amountCents,
		Type:          models.TransactionTypeDeposit,
		ReferenceType: models.ReferenceTypeTreasury,
		Description:   "Wallet deposit",
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return res, nil
}

// Withdraw debits the user's wallet back to the platform treasury.
func (s *service) Withdraw(ctx context.Context, userID uint, amountCents int64) (*transfer.Result, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if amountCents > s.config.MaxWithdrawalCents {
		return nil, ErrLimitExceeded
	}

	res, err := s.transferSvc.Transfer(ctx, transfer.Request{
		FromUserID:    userID,
		ToUserID:      s.config.TreasuryUserID,
		AmountCents:   amountCents,
		Type:          models.TransactionTypeWithdrawal,
		ReferenceType: models.ReferenceTypeTreasury,
		Description:   "Wallet withdrawal",
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return res, nil
}

func (s *service) History(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, error) {
	wallet, err := s.store.Wallets().GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.Ledger().HistoryByWallet(ctx, wallet.ID, limit, offset)
}

func (s *service) invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	for _, id := range []uint{userID, s.config.TreasuryUserID} {
		if err := s.cache.InvalidateWallet(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate wallet cache", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}
