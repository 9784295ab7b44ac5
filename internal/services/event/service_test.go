package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
	"stagepay/internal/repositories/memstore"
	"stagepay/internal/services/entitlement"
	"stagepay/internal/services/transfer"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordedBroadcast struct {
	RoomID  string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []recordedBroadcast
}

func (b *fakeBroadcaster) Broadcast(roomID string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, recordedBroadcast{RoomID: roomID, Payload: payload})
}

func (b *fakeBroadcaster) typesSent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		if m, ok := c.Payload.(map[string]interface{}); ok {
			if typ, ok := m["type"].(string); ok {
				out = append(out, typ)
			}
		}
	}
	return out
}

type fixture struct {
	store       *memstore.Store
	svc         Service
	broadcaster *fakeBroadcaster
}

func newFixture(t *testing.T, allow bool) *fixture {
	t.Helper()
	store := memstore.New()
	broadcaster := &fakeBroadcaster{}
	transferSvc := transfer.NewService(store, zap.NewNop(), nil)
	svc := NewService(store, transferSvc, entitlement.NewStatic(allow), broadcaster, nil, zap.NewNop())
	return &fixture{store: store, svc: svc, broadcaster: broadcaster}
}

const (
	creatorID = uint(10)
	fanID     = uint(20)
)

func (f *fixture) seedTicketedEvent(status string, priceCents int64, maxAttendees *int) *models.Event {
	return f.store.SeedEvent(&models.Event{
		CreatorID:    creatorID,
		Title:        "Acoustic Session",
		Status:       status,
		AccessType:   models.AccessTypeTicketed,
		PriceCents:   priceCents,
		MaxAttendees: maxAttendees,
	})
}

func intPtr(n int) *int { return &n }

func TestPurchaseTicket_Success(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 500, nil)

	ticket, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)
	assert.Equal(t, ev.ID, ticket.EventID)
	assert.Equal(t, fanID, ticket.FanID)
	assert.Equal(t, int64(500), ticket.PricePaidCents)
	assert.NotEmpty(t, ticket.TransactionID)
	assert.Nil(t, ticket.RefundedAt)

	fan, _ := f.store.Wallets().GetByUserID(fanID)
	creator, _ := f.store.Wallets().GetByUserID(creatorID)
	assert.Equal(t, int64(500), fan.AvailableBalanceCents)
	assert.Equal(t, int64(500), creator.AvailableBalanceCents)

	sum, _ := f.store.Ledger().SumByTransaction(ticket.TransactionID)
	assert.Zero(t, sum)

	// Both ledger halves point back at the ticket row.
	entries, _ := f.store.Ledger().ByTransaction(ticket.TransactionID)
	for _, e := range entries {
		assert.Equal(t, models.ReferenceTypeEventTicket, e.ReferenceType)
		assert.Equal(t, ticket.ID, e.ReferenceID)
		assert.Equal(t, ticket.ID, e.Metadata.TicketID)
	}

	stored, _ := f.store.Events().GetTicket(ev.ID, fanID)
	assert.Equal(t, ticket.TransactionID, stored.TransactionID)

	updated, _ := f.store.Events().GetByID(ev.ID)
	assert.Equal(t, int64(500), updated.TotalRevenueCents)
	assert.Equal(t, []string{"ticket_sold"}, f.broadcaster.typesSent())
}

func TestPurchaseTicket_CreatesCreatorWallet(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 500, nil)

	// The creator has never touched their wallet.
	_, err := f.store.Wallets().GetByUserID(creatorID)
	assert.ErrorIs(t, err, repositories.ErrWalletNotFound)

	_, err = f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)

	creator, err := f.store.Wallets().GetByUserID(creatorID)
	assert.NoError(t, err)
	assert.Equal(t, int64(500), creator.AvailableBalanceCents)
	assert.Equal(t, models.WalletStatusActive, creator.Status)
}

func TestSendTip_CreatesCreatorWallet(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusLive, 500, nil)

	_, err := f.svc.SendTip(context.Background(), ev.ID, fanID, TipParams{AmountCents: 200})
	assert.NoError(t, err)

	creator, err := f.store.Wallets().GetByUserID(creatorID)
	assert.NoError(t, err)
	assert.Equal(t, int64(200), creator.AvailableBalanceCents)
}

func TestPurchaseTicket_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture) uint
		buyer   uint
		wantErr error
	}{
		{
			name: "cancelled event",
			setup: func(f *fixture) uint {
				return f.seedTicketedEvent(models.EventStatusCancelled, 500, nil).ID
			},
			buyer:   fanID,
			wantErr: ErrEventNotPurchasable,
		},
		{
			name: "ended event",
			setup: func(f *fixture) uint {
				return f.seedTicketedEvent(models.EventStatusEnded, 500, nil).ID
			},
			buyer:   fanID,
			wantErr: ErrEventNotPurchasable,
		},
		{
			name: "free event sells no tickets",
			setup: func(f *fixture) uint {
				return f.store.SeedEvent(&models.Event{
					CreatorID:  creatorID,
					Title:      "Open Hangout",
					Status:     models.EventStatusScheduled,
					AccessType: models.AccessTypeFree,
				}).ID
			},
			buyer:   fanID,
			wantErr: ErrNotTicketed,
		},
		{
			name: "creator cannot buy own ticket",
			setup: func(f *fixture) uint {
				return f.seedTicketedEvent(models.EventStatusScheduled, 500, nil).ID
			},
			buyer:   creatorID,
			wantErr: ErrAccessDenied,
		},
		{
			name: "missing event",
			setup: func(f *fixture) uint {
				return 999
			},
			buyer:   fanID,
			wantErr: repositories.ErrEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			f.store.SeedWallet(creatorID, 0)
			f.store.SeedWallet(fanID, 1000)
			eventID := tt.setup(f)

			_, err := f.svc.PurchaseTicket(context.Background(), eventID, tt.buyer)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.store.LedgerEntries())
		})
	}
}

func TestPurchaseTicket_DuplicateLeavesNoSecondCharge(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 500, nil)

	_, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)

	_, err = f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, repositories.ErrDuplicateTicket)

	fan, _ := f.store.Wallets().GetByUserID(fanID)
	assert.Equal(t, int64(500), fan.AvailableBalanceCents)
	assert.Len(t, f.store.LedgerEntries(), 2)
}

func TestPurchaseTicket_InsufficientFundsIsAtomic(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 100)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 500, nil)

	_, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, transfer.ErrInsufficientFunds)

	fan, _ := f.store.Wallets().GetByUserID(fanID)
	assert.Equal(t, int64(100), fan.AvailableBalanceCents)
	assert.Empty(t, f.store.LedgerEntries())

	count, _ := f.store.Events().CountActiveTickets(ev.ID)
	assert.Zero(t, count)

	updated, _ := f.store.Events().GetByID(ev.ID)
	assert.Zero(t, updated.TotalRevenueCents)
	assert.Empty(t, f.broadcaster.typesSent())
}

func TestPurchaseTicket_SoldOut(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	f.store.SeedWallet(fanID+1, 1000)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 500, intPtr(1))

	_, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)

	_, err = f.svc.PurchaseTicket(context.Background(), ev.ID, fanID+1)
	assert.ErrorIs(t, err, ErrSoldOut)

	second, _ := f.store.Wallets().GetByUserID(fanID + 1)
	assert.Equal(t, int64(1000), second.AvailableBalanceCents)
}

func TestPurchaseTicket_ConcurrentNeverOversells(t *testing.T) {
	const (
		capacity = 3
		buyers   = 10
		price    = int64(500)
	)

	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	for i := 0; i < buyers; i++ {
		f.store.SeedWallet(fanID+uint(i), 1000)
	}
	ev := f.seedTicketedEvent(models.EventStatusScheduled, price, intPtr(capacity))

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyer uint) {
			defer wg.Done()
			_, err := f.svc.PurchaseTicket(context.Background(), ev.ID, buyer)
			results <- err
		}(fanID + uint(i))
	}
	wg.Wait()
	close(results)

	succeeded, soldOut := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrSoldOut):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, buyers-capacity, soldOut)

	count, _ := f.store.Events().CountActiveTickets(ev.ID)
	assert.Equal(t, capacity, count)

	creator, _ := f.store.Wallets().GetByUserID(creatorID)
	assert.Equal(t, price*capacity, creator.AvailableBalanceCents)

	updated, _ := f.store.Events().GetByID(ev.ID)
	assert.Equal(t, price*capacity, updated.TotalRevenueCents)
}

func TestSendTip_Success(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusLive, 500, nil)

	tip, err := f.svc.SendTip(context.Background(), ev.ID, fanID, TipParams{
		AmountCents: 200,
		Message:     "great set",
	})
	assert.NoError(t, err)
	assert.Equal(t, creatorID, tip.ToUserID)
	assert.NotEmpty(t, tip.TransactionID)

	creator, _ := f.store.Wallets().GetByUserID(creatorID)
	assert.Equal(t, int64(200), creator.AvailableBalanceCents)

	updated, _ := f.store.Events().GetByID(ev.ID)
	assert.Equal(t, int64(200), updated.TotalTipsCents)

	payload := f.broadcaster.calls[0].Payload.(map[string]interface{})
	assert.Equal(t, "tip", payload["type"])
	assert.Equal(t, fanID, payload["from_user_id"])
}

func TestSendTip_AnonymousHidesSender(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusLive, 500, nil)

	_, err := f.svc.SendTip(context.Background(), ev.ID, fanID, TipParams{
		AmountCents: 100,
		Anonymous:   true,
	})
	assert.NoError(t, err)

	payload := f.broadcaster.calls[0].Payload.(map[string]interface{})
	_, exposed := payload["from_user_id"]
	assert.False(t, exposed)
}

func TestSendTip_OnlyWhileLive(t *testing.T) {
	for _, status := range []string{
		models.EventStatusScheduled,
		models.EventStatusEnded,
		models.EventStatusCancelled,
	} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t, false)
			f.store.SeedWallet(creatorID, 0)
			f.store.SeedWallet(fanID, 1000)
			ev := f.seedTicketedEvent(status, 500, nil)

			_, err := f.svc.SendTip(context.Background(), ev.ID, fanID, TipParams{AmountCents: 100})
			assert.ErrorIs(t, err, ErrEventNotLive)
			assert.Empty(t, f.store.LedgerEntries())
		})
	}
}

func TestCancelEvent_RefundsEveryTicket(t *testing.T) {
	const price = int64(500)
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	fans := []uint{fanID, fanID + 1, fanID + 2}
	for _, fan := range fans {
		f.store.SeedWallet(fan, 1000)
	}
	ev := f.seedTicketedEvent(models.EventStatusLive, price, nil)

	for _, fan := range fans {
		_, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fan)
		assert.NoError(t, err)
	}

	cancelled, err := f.svc.CancelEvent(context.Background(), ev.ID, creatorID)
	assert.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.ActualEndAt)
	assert.Zero(t, cancelled.TotalRevenueCents)

	for _, fan := range fans {
		w, _ := f.store.Wallets().GetByUserID(fan)
		assert.Equal(t, int64(1000), w.AvailableBalanceCents, "fan %d not made whole", fan)

		ticket, _ := f.store.Events().GetTicket(ev.ID, fan)
		assert.NotNil(t, ticket.RefundedAt)
	}

	creator, _ := f.store.Wallets().GetByUserID(creatorID)
	assert.Zero(t, creator.AvailableBalanceCents)

	count, _ := f.store.Events().CountActiveTickets(ev.ID)
	assert.Zero(t, count)

	// Each refund is a balanced double-entry transaction of its own.
	byTx := make(map[string]int64)
	for _, e := range f.store.LedgerEntries() {
		if e.EntryType == models.EntryTypeCredit {
			byTx[e.TransactionID] += e.AmountCents
		} else {
			byTx[e.TransactionID] -= e.AmountCents
		}
	}
	for txID, sum := range byTx {
		assert.Zerof(t, sum, "transaction %s does not balance", txID)
	}

	// Sales and refunds use the same referent: the ticket row.
	ticketIDs := make(map[uint]bool)
	for _, fan := range fans {
		ticket, _ := f.store.Events().GetTicket(ev.ID, fan)
		ticketIDs[ticket.ID] = true
	}
	for _, e := range f.store.LedgerEntries() {
		assert.Equal(t, models.ReferenceTypeEventTicket, e.ReferenceType)
		assert.True(t, ticketIDs[e.ReferenceID], "entry references unknown ticket %d", e.ReferenceID)
	}
}

func TestCancelEvent_SkipsAlreadyRefundedTicket(t *testing.T) {
	const price = int64(500)
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusLive, price, nil)

	ticket, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)

	// Refunded out of band before the cascade runs.
	assert.NoError(t, f.store.Events().MarkTicketRefunded(ticket.ID, time.Now()))

	_, err = f.svc.CancelEvent(context.Background(), ev.ID, creatorID)
	assert.NoError(t, err)

	// No refund transfer happened: only the purchase entries exist.
	assert.Len(t, f.store.LedgerEntries(), 2)
	fan, _ := f.store.Wallets().GetByUserID(fanID)
	assert.Equal(t, int64(500), fan.AvailableBalanceCents)
}

func TestCancelEvent_CascadeStopsOnHardFailure(t *testing.T) {
	const price = int64(500)
	f := newFixture(t, false)
	creatorWallet := f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	f.store.SeedWallet(fanID+1, 1000)
	ev := f.seedTicketedEvent(models.EventStatusLive, price, nil)

	_, err := f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)
	_, err = f.svc.PurchaseTicket(context.Background(), ev.ID, fanID+1)
	assert.NoError(t, err)

	// Drain the creator wallet so only one refund can be funded.
	assert.NoError(t, f.store.Wallets().ApplyDelta(creatorWallet.ID, -300, -300))

	_, err = f.svc.CancelEvent(context.Background(), ev.ID, creatorID)
	assert.ErrorIs(t, err, ErrRefundCascadeFailed)

	// The event stays cancelled; exactly one ticket was refunded and
	// the failing ticket's refundedAt flip rolled back with its transfer.
	updated, _ := f.store.Events().GetByID(ev.ID)
	assert.Equal(t, models.EventStatusCancelled, updated.Status)

	count, _ := f.store.Events().CountActiveTickets(ev.ID)
	assert.Equal(t, 1, count)
}

func TestEventLifecycleTransitions(t *testing.T) {
	f := newFixture(t, false)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 0, nil)
	ctx := context.Background()

	_, err := f.svc.EndEvent(ctx, ev.ID, creatorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	started, err := f.svc.StartEvent(ctx, ev.ID, creatorID)
	assert.NoError(t, err)
	assert.Equal(t, models.EventStatusLive, started.Status)
	assert.NotNil(t, started.ActualStartAt)

	_, err = f.svc.StartEvent(ctx, ev.ID, creatorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ended, err := f.svc.EndEvent(ctx, ev.ID, creatorID)
	assert.NoError(t, err)
	assert.Equal(t, models.EventStatusEnded, ended.Status)
	assert.NotNil(t, ended.ActualEndAt)

	_, err = f.svc.CancelEvent(ctx, ev.ID, creatorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.StartEvent(ctx, ev.ID, creatorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycle_OnlyCreator(t *testing.T) {
	f := newFixture(t, false)
	ev := f.seedTicketedEvent(models.EventStatusScheduled, 0, nil)

	_, err := f.svc.StartEvent(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, ErrNotEventCreator)

	_, err = f.svc.CancelEvent(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, ErrNotEventCreator)
}

func TestJoinEvent_FreeEvent(t *testing.T) {
	f := newFixture(t, false)
	ev := f.store.SeedEvent(&models.Event{
		CreatorID:  creatorID,
		Title:      "Open Hangout",
		Status:     models.EventStatusLive,
		AccessType: models.AccessTypeFree,
	})

	att, err := f.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)
	assert.True(t, att.IsActive)

	// Idempotent rejoin returns the same attendance and stays quiet.
	again, err := f.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)
	assert.Equal(t, att.ID, again.ID)
	assert.Equal(t, []string{"viewer_joined"}, f.broadcaster.typesSent())

	updated, _ := f.store.Events().GetByID(ev.ID)
	assert.Equal(t, 1, updated.TotalAttendees)
	assert.Equal(t, 1, updated.PeakConcurrentViewers)

	assert.NoError(t, f.svc.LeaveEvent(context.Background(), ev.ID, fanID))
	active, _ := f.store.Events().CountActiveAttendance(ev.ID)
	assert.Zero(t, active)
}

func TestJoinEvent_TicketGate(t *testing.T) {
	f := newFixture(t, false)
	f.store.SeedWallet(creatorID, 0)
	f.store.SeedWallet(fanID, 1000)
	ev := f.seedTicketedEvent(models.EventStatusLive, 500, nil)

	_, err := f.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.svc.PurchaseTicket(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)

	_, err = f.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)

	// The creator always has access to their own room.
	_, err = f.svc.JoinEvent(context.Background(), ev.ID, creatorID)
	assert.NoError(t, err)
}

func TestJoinEvent_EntitlementGate(t *testing.T) {
	seed := func(f *fixture) *models.Event {
		return f.store.SeedEvent(&models.Event{
			CreatorID:  creatorID,
			Title:      "Subscribers Only",
			Status:     models.EventStatusLive,
			AccessType: models.AccessTypeSubscriptionOnly,
		})
	}

	denied := newFixture(t, false)
	ev := seed(denied)
	_, err := denied.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	allowed := newFixture(t, true)
	ev = seed(allowed)
	_, err = allowed.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.NoError(t, err)
}

func TestJoinEvent_OnlyWhileLive(t *testing.T) {
	f := newFixture(t, false)
	ev := f.store.SeedEvent(&models.Event{
		CreatorID:  creatorID,
		Title:      "Open Hangout",
		Status:     models.EventStatusScheduled,
		AccessType: models.AccessTypeFree,
	})

	_, err := f.svc.JoinEvent(context.Background(), ev.ID, fanID)
	assert.ErrorIs(t, err, ErrEventNotLive)
}
