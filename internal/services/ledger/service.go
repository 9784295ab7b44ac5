// Package ledger exposes read-side queries over the append-only audit
// store. Writes go through the transfer engine only.
package ledger

import (
	"context"
	"errors"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Service answers reconciliation and history queries.
type Service interface {
	EntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error)

	// VerifyTransaction reports whether the entries for a transaction
	// balance to zero (credits minus debits).
	VerifyTransaction(ctx context.Context, transactionID string) (bool, error)
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

func (s *service) EntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error) {
	entries, err := s.store.Ledger().ByTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrTransactionNotFound
	}
	return entries, nil
}

func (s *service) VerifyTransaction(ctx context.Context, transactionID string) (bool, error) {
	sum, err := s.store.Ledger().SumByTransaction(transactionID)
	if err != nil {
		return false, err
	}
	return sum == 0, nil
}
