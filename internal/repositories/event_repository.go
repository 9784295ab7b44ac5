package repositories

import (
	"time"

	"stagepay/internal/models"
)

// EventRepository defines event, ticket, tip and attendance persistence.
// LockByID is the capacity gate's serialization point: the event row is
// read under FOR UPDATE so concurrent reservation decisions for the same
// event queue behind each other. It is only meaningful inside a
// DataStore.ExecuteInTransaction scope.
type EventRepository interface {
	Create(event *models.Event) error
	GetByID(id uint) (*models.Event, error)
	LockByID(id uint) (*models.Event, error)
	ListByCreator(creatorID uint) ([]models.Event, error)

	// TransitionStatus flips status only when the current value matches
	// from; zero rows affected is ErrIntegrity (the state changed under
	// a held lock, which must not happen).
	TransitionStatus(eventID uint, from, to string, set map[string]interface{}) error

	// Tickets
	CreateTicket(ticket *models.EventTicket) error

	// SetTicketTransaction backfills the ledger transaction id onto a
	// ticket inserted earlier in the same atomic scope.
	SetTicketTransaction(ticketID uint, transactionID string) error

	GetTicket(eventID, fanID uint) (*models.EventTicket, error)
	CountActiveTickets(eventID uint) (int, error)
	ListActiveTickets(eventID uint) ([]models.EventTicket, error)

	// MarkTicketRefunded sets refundedAt iff it is still null, which is
	// what makes refunds idempotent at the ticket level. Zero rows
	// affected is ErrTicketAlreadyRefunded.
	MarkTicketRefunded(ticketID uint, at time.Time) error

	// Tips
	CreateTip(tip *models.EventTip) error

	// Post-commit counter maintenance
	AddRevenue(eventID uint, deltaCents int64) error
	AddTips(eventID uint, deltaCents int64) error
	ResetRevenue(eventID uint) error

	// Attendance
	CreateAttendance(att *models.EventAttendance) error
	ActiveAttendance(eventID, userID uint) (*models.EventAttendance, error)
	HasAttended(eventID, userID uint) (bool, error)
	CloseAttendance(eventID, userID uint, leftAt time.Time) error
	CloseAllAttendance(eventID uint, leftAt time.Time) error
	CountActiveAttendance(eventID uint) (int, error)
	RecordJoinStats(eventID uint, newAttendee bool, concurrent int) error
}
