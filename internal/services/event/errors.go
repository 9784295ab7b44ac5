package event

import "errors"

// Service errors
var (
	ErrEventNotPurchasable = errors.New("event is not open for ticket purchase")
	ErrEventNotLive        = errors.New("event is not live")
	ErrSoldOut             = errors.New("event is sold out")
	ErrAccessDenied        = errors.New("access denied")
	ErrInvalidTransition   = errors.New("illegal event status transition")
	ErrNotEventCreator     = errors.New("only the event creator may do this")
	ErrNotTicketed         = errors.New("event does not sell tickets")

	// ErrRefundCascadeFailed means one ticket's refund failed during
	// cancellation. The cascade stops as a hard error; some fans may be
	// unrefunded and an operator has to intervene.
	ErrRefundCascadeFailed = errors.New("refund cascade failed")
)
