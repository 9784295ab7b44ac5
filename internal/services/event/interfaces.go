package event

import (
	"context"
	"time"

	"stagepay/internal/models"
)

// CreateParams describes a new event.
type CreateParams struct {
	Title            string
	AccessType       string
	PriceCents       int64
	MaxAttendees     *int
	ScheduledStartAt time.Time
}

// TipParams describes a tip sent during a live event.
type TipParams struct {
	AmountCents int64
	Message     string
	Anonymous   bool
}

// Service is the event lifecycle controller. It validates which
// financial operations are legal in the event's current state, runs the
// capacity gate for ticket sales, and drives the refund cascade on
// cancellation.
type Service interface {
	CreateEvent(ctx context.Context, creatorID uint, params CreateParams) (*models.Event, error)
	GetEvent(ctx context.Context, eventID uint) (*models.Event, error)

	StartEvent(ctx context.Context, eventID, creatorID uint) (*models.Event, error)
	EndEvent(ctx context.Context, eventID, creatorID uint) (*models.Event, error)
	CancelEvent(ctx context.Context, eventID, creatorID uint) (*models.Event, error)

	PurchaseTicket(ctx context.Context, eventID, fanID uint) (*models.EventTicket, error)
	SendTip(ctx context.Context, eventID, fromUserID uint, params TipParams) (*models.EventTip, error)
	JoinEvent(ctx context.Context, eventID, userID uint) (*models.EventAttendance, error)
	LeaveEvent(ctx context.Context, eventID, userID uint) error
}

// Broadcaster delivers realtime payloads to an event room. Calls are
// fire-and-forget and happen only after the financial commit; a
// delivery failure never undoes a committed transaction.
type Broadcaster interface {
	Broadcast(roomID string, payload interface{})
}

// NoopBroadcaster drops every payload.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Broadcast(string, interface{}) {}
