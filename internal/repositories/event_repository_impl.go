package repositories

import (
	"errors"
	"fmt"
	"time"

	"stagepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates an event repository over a gorm connection.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *models.Event) error {
	if result := r.db.Create(event); result.Error != nil {
		return fmt.Errorf("failed to create event: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) GetByID(id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.First(&event, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) LockByID(id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) ListByCreator(creatorID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.Where("creator_id = ?", creatorID).
		Order("scheduled_start_at DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) TransitionStatus(eventID uint, from, to string, set map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range set {
		updates[k] = v
	}
	result := r.db.Model(&models.Event{}).
		Where("id = ? AND status = ?", eventID, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition event status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIntegrity
	}
	return nil
}

func (r *eventRepository) CreateTicket(ticket *models.EventTicket) error {
	result := r.db.Create(ticket)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateTicket
		}
		return fmt.Errorf("failed to create ticket: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) SetTicketTransaction(ticketID uint, transactionID string) error {
	result := r.db.Model(&models.EventTicket{}).
		Where("id = ?", ticketID).
		Update("transaction_id", transactionID)
	if result.Error != nil {
		return fmt.Errorf("failed to set ticket transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrIntegrity
	}
	return nil
}

func (r *eventRepository) GetTicket(eventID, fanID uint) (*models.EventTicket, error) {
	var ticket models.EventTicket
	err := r.db.Where("event_id = ? AND fan_id = ?", eventID, fanID).First(&ticket).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &ticket, nil
}

func (r *eventRepository) CountActiveTickets(eventID uint) (int, error) {
	var count int64
	err := r.db.Model(&models.EventTicket{}).
		Where("event_id = ? AND refunded_at IS NULL", eventID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return int(count), nil
}

func (r *eventRepository) ListActiveTickets(eventID uint) ([]models.EventTicket, error) {
	var tickets []models.EventTicket
	err := r.db.Where("event_id = ? AND refunded_at IS NULL", eventID).
		Order("id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (r *eventRepository) MarkTicketRefunded(ticketID uint, at time.Time) error {
	result := r.db.Model(&models.EventTicket{}).
		Where("id = ? AND refunded_at IS NULL", ticketID).
		Update("refunded_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark ticket refunded: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTicketAlreadyRefunded
	}
	return nil
}

func (r *eventRepository) CreateTip(tip *models.EventTip) error {
	if result := r.db.Create(tip); result.Error != nil {
		return fmt.Errorf("failed to create tip: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) AddRevenue(eventID uint, deltaCents int64) error {
	return r.addCounter(eventID, "total_revenue_cents", deltaCents)
}

func (r *eventRepository) AddTips(eventID uint, deltaCents int64) error {
	return r.addCounter(eventID, "total_tips_cents", deltaCents)
}

func (r *eventRepository) addCounter(eventID uint, column string, delta int64) error {
	result := r.db.Model(&models.Event{}).
		Where("id = ?", eventID).
		Update(column, gorm.Expr(column+" + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *eventRepository) ResetRevenue(eventID uint) error {
	result := r.db.Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("total_revenue_cents", 0)
	if result.Error != nil {
		return fmt.Errorf("failed to reset revenue: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *eventRepository) CreateAttendance(att *models.EventAttendance) error {
	if result := r.db.Create(att); result.Error != nil {
		return fmt.Errorf("failed to create attendance: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) ActiveAttendance(eventID, userID uint) (*models.EventAttendance, error) {
	var att models.EventAttendance
	err := r.db.Where("event_id = ? AND user_id = ? AND is_active", eventID, userID).
		First(&att).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &att, nil
}

func (r *eventRepository) HasAttended(eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.EventAttendance{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return count > 0, nil
}

func (r *eventRepository) CloseAttendance(eventID, userID uint, leftAt time.Time) error {
	result := r.db.Model(&models.EventAttendance{}).
		Where("event_id = ? AND user_id = ? AND is_active", eventID, userID).
		Updates(map[string]interface{}{
			"is_active":        false,
			"left_at":          leftAt,
			"duration_seconds": gorm.Expr("EXTRACT(EPOCH FROM (? - joined_at))::int", leftAt),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to close attendance: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) CloseAllAttendance(eventID uint, leftAt time.Time) error {
	result := r.db.Model(&models.EventAttendance{}).
		Where("event_id = ? AND is_active", eventID).
		Updates(map[string]interface{}{
			"is_active":        false,
			"left_at":          leftAt,
			"duration_seconds": gorm.Expr("EXTRACT(EPOCH FROM (? - joined_at))::int", leftAt),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to close attendances: %w", result.Error)
	}
	return nil
}

func (r *eventRepository) CountActiveAttendance(eventID uint) (int, error) {
	var count int64
	err := r.db.Model(&models.EventAttendance{}).
		Where("event_id = ? AND is_active", eventID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return int(count), nil
}

func (r *eventRepository) RecordJoinStats(eventID uint, newAttendee bool, concurrent int) error {
	updates := map[string]interface{}{
		"peak_concurrent_viewers": gorm.Expr("GREATEST(peak_concurrent_viewers, ?)", concurrent),
	}
	if newAttendee {
		updates["total_attendees"] = gorm.Expr("total_attendees + 1")
	}
	result := r.db.Model(&models.Event{}).Where("id = ?", eventID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to record join stats: %w", result.Error)
	}
	return nil
}
