package transfer

import (
	"context"
	"time"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
)

// Request describes a single value movement between two wallets.
type Request struct {
	FromUserID    uint
	ToUserID      uint
	AmountCents   int64
	Type          string
	ReferenceType string
	ReferenceID   uint
	Description   string
	Metadata      models.Metadata
}

// Result reports a committed transfer. Balances are the exact
// post-transfer snapshots also written into the ledger entries.
type Result struct {
	TransactionID         string
	FromWalletID          uint
	ToWalletID            uint
	FromBalanceAfterCents int64
	ToBalanceAfterCents   int64
}

// Service moves a fixed amount from one wallet to another as one atomic
// unit with a paired debit/credit audit trail.
//
// Transfer runs in its own database transaction. Execute runs the same
// algorithm against a caller-supplied transactional DataStore, for
// callers that must compose the movement with their own writes (ticket
// or tip inserts) in a single atomic scope. Post-commit side effects
// (counters, broadcast) belong to the caller, after its scope commits.
type Service interface {
	Transfer(ctx context.Context, req Request) (*Result, error)
	Execute(store repositories.DataStore, req Request) (*Result, error)
}

// MetricsCollector records transfer engine metrics.
type MetricsCollector interface {
	RecordTransfer(txType, outcome string)
	RecordTransferDuration(txType string, d time.Duration)
	RecordVolume(txType string, amountCents int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransfer(string, string)                {}
func (NoopMetricsCollector) RecordTransferDuration(string, time.Duration) {}
func (NoopMetricsCollector) RecordVolume(string, int64)                   {}
