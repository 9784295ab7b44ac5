package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
	"stagepay/internal/services/event"
	"stagepay/internal/services/transfer"
	"stagepay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type EventHandler struct {
	eventService event.Service
}

func NewEventHandler(eventService event.Service) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

func eventIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid event id")
	}
	return uint(id), nil
}

func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Title            string    `json:"title"`
		AccessType       string    `json:"access_type"`
		PriceCents       int64     `json:"price_cents"`
		MaxAttendees     *int      `json:"max_attendees"`
		ScheduledStartAt time.Time `json:"scheduled_start_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.Title == "" {
		return utils.BadRequest(c, "title is required")
	}

	ev, err := h.eventService.CreateEvent(c.Context(), claims.UserID, event.CreateParams{
		Title:            input.Title,
		AccessType:       input.AccessType,
		PriceCents:       input.PriceCents,
		MaxAttendees:     input.MaxAttendees,
		ScheduledStartAt: input.ScheduledStartAt,
	})
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	return utils.Created(c, fiber.Map{"event": ev})
}

func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ev, err := h.eventService.GetEvent(c.Context(), eventID)
	if err != nil {
		return eventError(c, err)
	}

	return utils.Success(c, fiber.Map{"event": ev})
}

func (h *EventHandler) StartEvent(c *fiber.Ctx) error {
	return h.transition(c, h.eventService.StartEvent)
}

func (h *EventHandler) EndEvent(c *fiber.Ctx) error {
	return h.transition(c, h.eventService.EndEvent)
}

func (h *EventHandler) CancelEvent(c *fiber.Ctx) error {
	return h.transition(c, h.eventService.CancelEvent)
}

func (h *EventHandler) PurchaseTicket(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ticket, err := h.eventService.PurchaseTicket(c.Context(), eventID, claims.UserID)
	if err != nil {
		return eventError(c, err)
	}

	return utils.Created(c, fiber.Map{"ticket": ticket})
}

func (h *EventHandler) SendTip(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	var input struct {
		AmountCents int64  `json:"amount_cents"`
		Message     string `json:"message"`
		Anonymous   bool   `json:"anonymous"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if input.AmountCents <= 0 {
		return utils.BadRequest(c, "amount_cents must be greater than 0")
	}

	tip, err := h.eventService.SendTip(c.Context(), eventID, claims.UserID, event.TipParams{
		AmountCents: input.AmountCents,
		Message:     input.Message,
		Anonymous:   input.Anonymous,
	})
	if err != nil {
		return eventError(c, err)
	}

	return utils.Created(c, fiber.Map{"tip": tip})
}

func (h *EventHandler) JoinEvent(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	attendance, err := h.eventService.JoinEvent(c.Context(), eventID, claims.UserID)
	if err != nil {
		return eventError(c, err)
	}

	return utils.Success(c, fiber.Map{"attendance": attendance})
}

func (h *EventHandler) LeaveEvent(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	if err := h.eventService.LeaveEvent(c.Context(), eventID, claims.UserID); err != nil {
		return eventError(c, err)
	}

	return utils.Success(c, fiber.Map{"message": "Left event"})
}

func (h *EventHandler) transition(c *fiber.Ctx, fn func(ctx context.Context, eventID, creatorID uint) (*models.Event, error)) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ev, err := fn(c.Context(), eventID, claims.UserID)
	if err != nil {
		return eventError(c, err)
	}

	return utils.Success(c, fiber.Map{"event": ev})
}

func eventError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		return utils.NotFound(c, "Event not found")
	case errors.Is(err, repositories.ErrWalletNotFound):
		return utils.NotFound(c, "Wallet not found")
	case errors.Is(err, repositories.ErrDuplicateTicket):
		return utils.Conflict(c, "You already hold a ticket for this event")
	case errors.Is(err, event.ErrSoldOut):
		return utils.Conflict(c, "Event is sold out")
	case errors.Is(err, event.ErrInvalidTransition):
		return utils.Conflict(c, "Illegal event status transition")
	case errors.Is(err, event.ErrNotEventCreator):
		return utils.Forbidden(c, "Only the event creator may do this")
	case errors.Is(err, event.ErrAccessDenied):
		return utils.Forbidden(c, "Access denied")
	case errors.Is(err, event.ErrEventNotPurchasable):
		return utils.UnprocessableEntity(c, "Event is not open for ticket purchase")
	case errors.Is(err, event.ErrNotTicketed):
		return utils.UnprocessableEntity(c, "Event does not sell tickets")
	case errors.Is(err, event.ErrEventNotLive):
		return utils.UnprocessableEntity(c, "Event is not live")
	case errors.Is(err, transfer.ErrInsufficientFunds):
		return utils.UnprocessableEntity(c, "Insufficient funds")
	case errors.Is(err, transfer.ErrInvalidAmount):
		return utils.BadRequest(c, "Invalid amount")
	case errors.Is(err, transfer.ErrSelfTransfer):
		return utils.BadRequest(c, "Cannot send money to yourself")
	case errors.Is(err, repositories.ErrAttendanceNotFound):
		return utils.NotFound(c, "Not attending this event")
	default:
		return utils.InternalError(c, err.Error())
	}
}
