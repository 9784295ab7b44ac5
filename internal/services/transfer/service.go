package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stagepay/internal/models"
	"stagepay/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type service struct {
	store   repositories.DataStore
	logger  *zap.Logger
	metrics MetricsCollector
}

// NewService creates a new transfer engine.
func NewService(store repositories.DataStore, logger *zap.Logger, metrics MetricsCollector) Service {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	return &service{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *service) Transfer(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	var res *Result
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		var execErr error
		res, execErr = s.Execute(tx, req)
		return execErr
	})
	if err != nil {
		s.metrics.RecordTransfer(req.Type, "failure")
		return nil, err
	}

	s.metrics.RecordTransfer(req.Type, "success")
	s.metrics.RecordTransferDuration(req.Type, time.Since(start))
	s.metrics.RecordVolume(req.Type, req.AmountCents)

	s.logger.Info("transfer committed",
		zap.String("transaction_id", res.TransactionID),
		zap.String("type", req.Type),
		zap.Uint("from_user_id", req.FromUserID),
		zap.Uint("to_user_id", req.ToUserID),
		zap.Int64("amount_cents", req.AmountCents),
	)
	return res, nil
}

// Execute runs the transfer algorithm inside the caller's transactional
// scope. On any error the caller's transaction must roll back: no
// partial balance change survives and no ledger entries are written.
func (s *service) Execute(store repositories.DataStore, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	wallets := store.Wallets()

	// Both wallet rows are locked in ascending user id order. The order
	// is global and direction-independent, so two transfers running
	// A->B and B->A concurrently cannot deadlock.
	firstID, secondID := req.FromUserID, req.ToUserID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := wallets.LockByUserID(firstID)
	if err != nil {
		return nil, err
	}
	second, err := wallets.LockByUserID(secondID)
	if err != nil {
		return nil, err
	}

	from, to := first, second
	if from.UserID != req.FromUserID {
		from, to = second, first
	}

	if from.Status != models.WalletStatusActive || to.Status != models.WalletStatusActive {
		return nil, ErrWalletLocked
	}
	if from.Currency != to.Currency {
		return nil, ErrCurrencyMismatch
	}

	// Balances re-read under lock; the pre-flight funds check is the
	// only place insufficient funds is rejected.
	if from.AvailableBalanceCents < req.AmountCents {
		return nil, ErrInsufficientFunds
	}

	// Both new balances are computed before any write so the ledger's
	// balanceAfter snapshots are exact regardless of write ordering.
	fromAvailableAfter := from.AvailableBalanceCents - req.AmountCents
	toAvailableAfter := to.AvailableBalanceCents + req.AmountCents

	if err := wallets.ApplyDelta(from.ID, -req.AmountCents, -req.AmountCents); err != nil {
		return nil, s.integrityCheck(err, "debit", from.ID, req)
	}
	if err := wallets.ApplyDelta(to.ID, req.AmountCents, req.AmountCents); err != nil {
		return nil, s.integrityCheck(err, "credit", to.ID, req)
	}

	txID := uuid.NewString()
	ledger := store.Ledger()

	debit := &models.LedgerEntry{
		TransactionID:     txID,
		WalletID:          from.ID,
		UserID:            from.UserID,
		EntryType:         models.EntryTypeDebit,
		TransactionType:   req.Type,
		AmountCents:       req.AmountCents,
		BalanceAfterCents: fromAvailableAfter,
		Currency:          from.Currency,
		ReferenceType:     req.ReferenceType,
		ReferenceID:       req.ReferenceID,
		Description:       req.Description,
		Metadata:          withVersion(req.Metadata),
	}
	credit := &models.LedgerEntry{
		TransactionID:     txID,
		WalletID:          to.ID,
		UserID:            to.UserID,
		EntryType:         models.EntryTypeCredit,
		TransactionType:   req.Type,
		AmountCents:       req.AmountCents,
		BalanceAfterCents: toAvailableAfter,
		Currency:          to.Currency,
		ReferenceType:     req.ReferenceType,
		ReferenceID:       req.ReferenceID,
		Description:       req.Description,
		Metadata:          withVersion(req.Metadata),
	}
	if err := ledger.Append(debit); err != nil {
		return nil, fmt.Errorf("failed to write debit entry: %w", err)
	}
	if err := ledger.Append(credit); err != nil {
		return nil, fmt.Errorf("failed to write credit entry: %w", err)
	}

	return &Result{
		TransactionID:         txID,
		FromWalletID:          from.ID,
		ToWalletID:            to.ID,
		FromBalanceAfterCents: fromAvailableAfter,
		ToBalanceAfterCents:   toAvailableAfter,
	}, nil
}

// integrityCheck escalates zero-rows-affected writes. An update that
// touched no rows while its wallet lock is held is a lost lock or a
// data-model violation; the operation aborts and is never retried.
func (s *service) integrityCheck(err error, leg string, walletID uint, req Request) error {
	if errors.Is(err, repositories.ErrIntegrity) {
		s.logger.Error("transfer write affected no rows",
			zap.String("leg", leg),
			zap.Uint("wallet_id", walletID),
			zap.Uint("from_user_id", req.FromUserID),
			zap.Uint("to_user_id", req.ToUserID),
			zap.Int64("amount_cents", req.AmountCents),
			zap.Bool("operator_action_required", true),
		)
		return err
	}
	return fmt.Errorf("failed to apply %s: %w", leg, err)
}

func validate(req Request) error {
	if req.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if req.FromUserID == req.ToUserID {
		return ErrSelfTransfer
	}
	switch req.Type {
	case models.TransactionTypePayment,
		models.TransactionTypeTip,
		models.TransactionTypeRefund,
		models.TransactionTypeDeposit,
		models.TransactionTypeWithdrawal:
		return nil
	default:
		return ErrInvalidType
	}
}

func withVersion(m models.Metadata) models.Metadata {
	if m.Version == 0 {
		m.Version = models.MetadataVersion
	}
	return m
}
