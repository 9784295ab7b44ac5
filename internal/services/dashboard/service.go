package dashboard

import (
	"context"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
)

// CreatorSummary aggregates a creator's earnings from the ledger plus
// per-event rollups. The ledger is the source of truth; the event
// counters are display-oriented.
type CreatorSummary struct {
	TotalEarnedCents   int64          `json:"total_earned_cents"`
	TipsReceivedCents  int64          `json:"tips_received_cents"`
	RefundsIssuedCents int64          `json:"refunds_issued_cents"`
	Events             []models.Event `json:"events"`
}

type Service interface {
	GetCreatorSummary(ctx context.Context, creatorID uint) (*CreatorSummary, error)
}

type service struct {
	store repositories.DataStore
}

func NewService(store repositories.DataStore) Service {
	if store == nil {
		panic("store is required")
	}
	return &service{store: store}
}

func (s *service) GetCreatorSummary(ctx context.Context, creatorID uint) (*CreatorSummary, error) {
	ledger := s.store.Ledger()

	payments, err := ledger.SumByUserAndType(ctx, creatorID, models.EntryTypeCredit, models.TransactionTypePayment)
	if err != nil {
		return nil, err
	}
	tips, err := ledger.SumByUserAndType(ctx, creatorID, models.EntryTypeCredit, models.TransactionTypeTip)
	if err != nil {
		return nil, err
	}
	refunds, err := ledger.SumByUserAndType(ctx, creatorID, models.EntryTypeDebit, models.TransactionTypeRefund)
	if err != nil {
		return nil, err
	}
	events, err := s.store.Events().ListByCreator(creatorID)
	if err != nil {
		return nil, err
	}

	return &CreatorSummary{
		TotalEarnedCents:   payments + tips - refunds,
		TipsReceivedCents:  tips,
		RefundsIssuedCents: refunds,
		Events:             events,
	}, nil
}
