package dashboard

import (
	"context"
	"testing"

	"stagepay/internal/models"
	"stagepay/internal/repositories/memstore"
	"stagepay/internal/services/transfer"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGetCreatorSummary(t *testing.T) {
	store := memstore.New()
	store.SeedWallet(10, 0)   // creator
	store.SeedWallet(20, 5000) // fan
	store.SeedEvent(&models.Event{CreatorID: 10, Title: "Show A"})
	store.SeedEvent(&models.Event{CreatorID: 10, Title: "Show B"})
	store.SeedEvent(&models.Event{CreatorID: 99, Title: "Someone Else"})

	transferSvc := transfer.NewService(store, zap.NewNop(), nil)
	send := func(txType string, from, to uint, amount int64) {
		t.Helper()
		_, err := transferSvc.Transfer(context.Background(), transfer.Request{
			FromUserID:  from,
			ToUserID:    to,
			AmountCents: amount,
			Type:        txType,
		})
		assert.NoError(t, err)
	}

	send(models.TransactionTypePayment, 20, 10, 1000)
	send(models.TransactionTypePayment, 20, 10, 500)
	send(models.TransactionTypeTip, 20, 10, 250)
	send(models.TransactionTypeRefund, 10, 20, 500)

	svc := NewService(store)
	summary, err := svc.GetCreatorSummary(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(1250), summary.TotalEarnedCents)
	assert.Equal(t, int64(250), summary.TipsReceivedCents)
	assert.Equal(t, int64(500), summary.RefundsIssuedCents)
	assert.Len(t, summary.Events, 2)
}
