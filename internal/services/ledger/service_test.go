package ledger

import (
	"context"
	"testing"

	"stagepay/internal/models"
	"stagepay/internal/repositories/memstore"
	"stagepay/internal/services/transfer"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEntriesByTransaction(t *testing.T) {
	store := memstore.New()
	store.SeedWallet(1, 1000)
	store.SeedWallet(2, 0)
	transferSvc := transfer.NewService(store, zap.NewNop(), nil)

	res, err := transferSvc.Transfer(context.Background(), transfer.Request{
		FromUserID:  1,
		ToUserID:    2,
		AmountCents: 400,
		Type:        models.TransactionTypePayment,
	})
	assert.NoError(t, err)

	svc := NewService(store)
	entries, err := svc.EntriesByTransaction(context.Background(), res.TransactionID)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.EntriesByTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestVerifyTransaction(t *testing.T) {
	store := memstore.New()
	store.SeedWallet(1, 1000)
	store.SeedWallet(2, 0)
	transferSvc := transfer.NewService(store, zap.NewNop(), nil)

	res, err := transferSvc.Transfer(context.Background(), transfer.Request{
		FromUserID:  1,
		ToUserID:    2,
		AmountCents: 150,
		Type:        models.TransactionTypeTip,
	})
	assert.NoError(t, err)

	svc := NewService(store)
	balanced, err := svc.VerifyTransaction(context.Background(), res.TransactionID)
	assert.NoError(t, err)
	assert.True(t, balanced)

	// A lone orphaned entry is exactly what verification has to catch.
	assert.NoError(t, store.Ledger().Append(&models.LedgerEntry{
		TransactionID:   "orphan",
		WalletID:        1,
		UserID:          1,
		EntryType:       models.EntryTypeDebit,
		TransactionType: models.TransactionTypePayment,
		AmountCents:     100,
	}))
	balanced, err = svc.VerifyTransaction(context.Background(), "orphan")
	assert.NoError(t, err)
	assert.False(t, balanced)
}
