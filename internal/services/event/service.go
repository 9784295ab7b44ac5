package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stagepay/internal/models"
	"stagepay/internal/repositories"
	"stagepay/internal/services/entitlement"
	"stagepay/internal/services/transfer"
	"stagepay/internal/services/wallet"

	"go.uber.org/zap"
)

type service struct {
	store        repositories.DataStore
	transferSvc  transfer.Service
	entitlements entitlement.Checker
	broadcaster  Broadcaster
	cache        wallet.Cache
	logger       *zap.Logger
}

// NewService creates the event lifecycle controller.
func NewService(
	store repositories.DataStore,
	transferSvc transfer.Service,
	entitlements entitlement.Checker,
	broadcaster Broadcaster,
	cache wallet.Cache,
	logger *zap.Logger,
) Service {
	if store == nil {
		panic("store is required")
	}
	if transferSvc == nil {
		panic("transfer service is required")
	}
	if entitlements == nil {
		entitlements = entitlement.NewStatic(false)
	}
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:        store,
		transferSvc:  transferSvc,
		entitlements: entitlements,
		broadcaster:  broadcaster,
		cache:        cache,
		logger:       logger,
	}
}

// invalidateWallets drops cached wallet reads after a committed balance
// change so the cache is never newer than the store.
func (s *service) invalidateWallets(ctx context.Context, userIDs ...uint) {
	if s.cache == nil {
		return
	}
	for _, id := range userIDs {
		if err := s.cache.InvalidateWallet(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate wallet cache", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}

func (s *service) CreateEvent(ctx context.Context, creatorID uint, params CreateParams) (*models.Event, error) {
	if params.Title == "" {
		return nil, errors.New("title is required")
	}
	switch params.AccessType {
	case models.AccessTypeFree, models.AccessTypeSubscriptionOnly, models.AccessTypeTierGated:
		if params.PriceCents != 0 {
			return nil, errors.New("only ticketed events carry a price")
		}
	case models.AccessTypeTicketed:
		if params.PriceCents < 0 {
			return nil, errors.New("price must not be negative")
		}
	default:
		return nil, fmt.Errorf("unknown access type %q", params.AccessType)
	}
	if params.MaxAttendees != nil && *params.MaxAttendees <= 0 {
		return nil, errors.New("max attendees must be positive when set")
	}

	event := &models.Event{
		CreatorID:        creatorID,
		Title:            params.Title,
		Status:           models.EventStatusScheduled,
		AccessType:       params.AccessType,
		PriceCents:       params.PriceCents,
		MaxAttendees:     params.MaxAttendees,
		ScheduledStartAt: params.ScheduledStartAt,
	}
	if err := s.store.Events().Create(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) GetEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	return s.store.Events().GetByID(eventID)
}

func (s *service) StartEvent(ctx context.Context, eventID, creatorID uint) (*models.Event, error) {
	now := time.Now()
	event, err := s.transition(eventID, creatorID, models.EventStatusScheduled, models.EventStatusLive,
		map[string]interface{}{"actual_start_at": now})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(roomID(eventID), map[string]interface{}{
		"type":     "event_started",
		"event_id": eventID,
	})
	return event, nil
}

func (s *service) EndEvent(ctx context.Context, eventID, creatorID uint) (*models.Event, error) {
	now := time.Now()
	var event *models.Event
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		var txErr error
		event, txErr = s.lockedTransition(tx, eventID, creatorID,
			models.EventStatusLive, models.EventStatusEnded,
			map[string]interface{}{"actual_end_at": now})
		if txErr != nil {
			return txErr
		}
		return tx.Events().CloseAllAttendance(eventID, now)
	})
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(roomID(eventID), map[string]interface{}{
		"type":     "event_ended",
		"event_id": eventID,
	})
	return event, nil
}

// CancelEvent transitions the event to cancelled and then refunds every
// non-refunded ticket, each refund in its own atomic transaction. One
// failing refund aborts the whole cascade as a hard error rather than
// silently leaving a fan unrefunded. Revenue is reset to zero only
// after every refund has committed.
func (s *service) CancelEvent(ctx context.Context, eventID, creatorID uint) (*models.Event, error) {
	now := time.Now()
	var event *models.Event
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		ev, txErr := tx.Events().LockByID(eventID)
		if txErr != nil {
			return txErr
		}
		if ev.CreatorID != creatorID {
			return ErrNotEventCreator
		}
		if ev.Status != models.EventStatusScheduled && ev.Status != models.EventStatusLive {
			return ErrInvalidTransition
		}
		if txErr := tx.Events().TransitionStatus(eventID, ev.Status, models.EventStatusCancelled,
			map[string]interface{}{"actual_end_at": now}); txErr != nil {
			return txErr
		}
		if txErr := tx.Events().CloseAllAttendance(eventID, now); txErr != nil {
			return txErr
		}
		ev.Status = models.EventStatusCancelled
		ev.ActualEndAt = &now
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	tickets, err := s.store.Events().ListActiveTickets(eventID)
	if err != nil {
		return nil, err
	}
	for _, ticket := range tickets {
		if err := s.refundTicket(ctx, event, ticket); err != nil {
			s.logger.Error("refund cascade aborted",
				zap.Uint("event_id", eventID),
				zap.Uint("ticket_id", ticket.ID),
				zap.Uint("fan_id", ticket.FanID),
				zap.Int64("amount_cents", ticket.PricePaidCents),
				zap.Error(err),
				zap.Bool("operator_action_required", true),
			)
			return nil, fmt.Errorf("%w: ticket %d: %v", ErrRefundCascadeFailed, ticket.ID, err)
		}
	}

	if err := s.store.Events().ResetRevenue(eventID); err != nil {
		return nil, err
	}
	event.TotalRevenueCents = 0

	s.broadcaster.Broadcast(roomID(eventID), map[string]interface{}{
		"type":     "event_cancelled",
		"event_id": eventID,
	})
	return event, nil
}

// refundTicket refunds one ticket atomically: the refundedAt flip and
// the creator->fan transfer share one transaction. A ticket already
// marked refunded is skipped, never double-refunded.
func (s *service) refundTicket(ctx context.Context, event *models.Event, ticket models.EventTicket) error {
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		if txErr := tx.Events().MarkTicketRefunded(ticket.ID, time.Now()); txErr != nil {
			return txErr
		}
		if ticket.PricePaidCents == 0 {
			return nil
		}
		_, txErr := s.transferSvc.Execute(tx, transfer.Request{
			FromUserID:    event.CreatorID,
			ToUserID:      ticket.FanID,
			AmountCents:   ticket.PricePaidCents,
			Type:          models.TransactionTypeRefund,
			ReferenceType: models.ReferenceTypeEventTicket,
			ReferenceID:   ticket.ID,
			Description:   fmt.Sprintf("Refund for cancelled event %q", event.Title),
			Metadata: models.Metadata{
				EventID:  event.ID,
				TicketID: ticket.ID,
			},
		})
		return txErr
	})
	if errors.Is(err, repositories.ErrTicketAlreadyRefunded) {
		return nil
	}
	if err == nil {
		s.invalidateWallets(ctx, event.CreatorID, ticket.FanID)
	}
	return err
}

// PurchaseTicket admits one fan to a ticketed event. The event row is
// locked for the whole count-and-decide step, so concurrent buyers
// serialize and the active-ticket count can never exceed maxAttendees.
// The funds movement and the ticket insert commit in the same
// transaction; revenue counters and the broadcast run after commit.
func (s *service) PurchaseTicket(ctx context.Context, eventID, fanID uint) (*models.EventTicket, error) {
	var (
		ticket    *models.EventTicket
		price     int64
		creatorID uint
	)
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		ev, txErr := tx.Events().LockByID(eventID)
		if txErr != nil {
			return txErr
		}
		if ev.Status != models.EventStatusScheduled && ev.Status != models.EventStatusLive {
			return ErrEventNotPurchasable
		}
		if ev.AccessType != models.AccessTypeTicketed {
			return ErrNotTicketed
		}
		if ev.CreatorID == fanID {
			return ErrAccessDenied
		}

		// The unique (event, fan) index is the backstop; checking first
		// gives the caller a clean error without burning the insert.
		if _, txErr := tx.Events().GetTicket(eventID, fanID); txErr == nil {
			return repositories.ErrDuplicateTicket
		} else if !errors.Is(txErr, repositories.ErrTicketNotFound) {
			return txErr
		}

		// Capacity gate: counted only while the event lock is held.
		if ev.MaxAttendees != nil {
			count, txErr := tx.Events().CountActiveTickets(eventID)
			if txErr != nil {
				return txErr
			}
			if count >= *ev.MaxAttendees {
				return ErrSoldOut
			}
		}

		price = ev.PriceCents
		creatorID = ev.CreatorID

		// The ticket row is inserted first so the transfer can carry
		// its id as the ledger back-reference; if the transfer aborts,
		// the insert rolls back with everything else.
		ticket = &models.EventTicket{
			EventID:        eventID,
			FanID:          fanID,
			PricePaidCents: price,
		}
		if txErr := tx.Events().CreateTicket(ticket); txErr != nil {
			return txErr
		}
		if price == 0 {
			return nil
		}

		if txErr := ensureWallet(tx, ev.CreatorID); txErr != nil {
			return txErr
		}
		res, txErr := s.transferSvc.Execute(tx, transfer.Request{
			FromUserID:    fanID,
			ToUserID:      ev.CreatorID,
			AmountCents:   price,
			Type:          models.TransactionTypePayment,
			ReferenceType: models.ReferenceTypeEventTicket,
			ReferenceID:   ticket.ID,
			Description:   fmt.Sprintf("Ticket for event %q", ev.Title),
			Metadata: models.Metadata{
				EventID:  eventID,
				TicketID: ticket.ID,
			},
		})
		if txErr != nil {
			return txErr
		}
		ticket.TransactionID = res.TransactionID
		return tx.Events().SetTicketTransaction(ticket.ID, res.TransactionID)
	})
	if err != nil {
		return nil, err
	}

	// Post-commit side effects. A failure here is logged and
	// reconciled from the ledger, never rolled back.
	if price > 0 {
		s.invalidateWallets(ctx, fanID, creatorID)
		if err := s.store.Events().AddRevenue(eventID, price); err != nil {
			s.logger.Error("failed to update revenue counter",
				zap.Uint("event_id", eventID), zap.Error(err))
		}
	}
	s.broadcaster.Broadcast(roomID(eventID), map[string]interface{}{
		"type":     "ticket_sold",
		"event_id": eventID,
	})
	return ticket, nil
}

// SendTip moves a tip from a fan to the creator while the event is
// live. The tip row and the transfer commit together.
func (s *service) SendTip(ctx context.Context, eventID, fromUserID uint, params TipParams) (*models.EventTip, error) {
	var tip *models.EventTip
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		// Locked like the purchase path, so the live-only gate cannot
		// race a concurrent transition out of live.
		ev, txErr := tx.Events().LockByID(eventID)
		if txErr != nil {
			return txErr
		}
		if ev.Status != models.EventStatusLive {
			return ErrEventNotLive
		}
		if txErr := ensureWallet(tx, ev.CreatorID); txErr != nil {
			return txErr
		}
		res, txErr := s.transferSvc.Execute(tx, transfer.Request{
			FromUserID:    fromUserID,
			ToUserID:      ev.CreatorID,
			AmountCents:   params.AmountCents,
			Type:          models.TransactionTypeTip,
			ReferenceType: models.ReferenceTypeEventTip,
			ReferenceID:   eventID,
			Description:   fmt.Sprintf("Tip during event %q", ev.Title),
			Metadata: models.Metadata{
				EventID:   eventID,
				Anonymous: params.Anonymous,
			},
		})
		if txErr != nil {
			return txErr
		}
		tip = &models.EventTip{
			EventID:       eventID,
			FromUserID:    fromUserID,
			ToUserID:      ev.CreatorID,
			AmountCents:   params.AmountCents,
			Message:       params.Message,
			IsAnonymous:   params.Anonymous,
			TransactionID: res.TransactionID,
		}
		return tx.Events().CreateTip(tip)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateWallets(ctx, fromUserID, tip.ToUserID)
	if err := s.store.Events().AddTips(eventID, params.AmountCents); err != nil {
		s.logger.Error("failed to update tip counter",
			zap.Uint("event_id", eventID), zap.Error(err))
	}
	payload := map[string]interface{}{
		"type":         "tip",
		"event_id":     eventID,
		"amount_cents": params.AmountCents,
		"message":      params.Message,
	}
	if !params.Anonymous {
		payload["from_user_id"] = fromUserID
	}
	s.broadcaster.Broadcast(roomID(eventID), payload)
	return tip, nil
}

// JoinEvent admits a viewer to a live event room after the access-type
// gate. Joining is idempotent: an already-active attendance is
// returned as-is.
func (s *service) JoinEvent(ctx context.Context, eventID, userID uint) (*models.EventAttendance, error) {
	var (
		attendance *models.EventAttendance
		concurrent int
		rejoined   bool
	)
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		ev, txErr := tx.Events().GetByID(eventID)
		if txErr != nil {
			return txErr
		}
		if ev.Status != models.EventStatusLive {
			return ErrEventNotLive
		}
		if txErr := s.checkAccess(ctx, tx, ev, userID); txErr != nil {
			return txErr
		}

		if existing, txErr := tx.Events().ActiveAttendance(eventID, userID); txErr == nil {
			attendance = existing
			rejoined = true
			return nil
		} else if !errors.Is(txErr, repositories.ErrAttendanceNotFound) {
			return txErr
		}

		returning, txErr := tx.Events().HasAttended(eventID, userID)
		if txErr != nil {
			return txErr
		}
		attendance = &models.EventAttendance{
			EventID:  eventID,
			UserID:   userID,
			JoinedAt: time.Now(),
			IsActive: true,
		}
		if txErr := tx.Events().CreateAttendance(attendance); txErr != nil {
			return txErr
		}
		concurrent, txErr = tx.Events().CountActiveAttendance(eventID)
		if txErr != nil {
			return txErr
		}
		return tx.Events().RecordJoinStats(eventID, !returning, concurrent)
	})
	if err != nil {
		return nil, err
	}

	if !rejoined {
		s.broadcaster.Broadcast(roomID(eventID), map[string]interface{}{
			"type":     "viewer_joined",
			"event_id": eventID,
			"viewers":  concurrent,
		})
	}
	return attendance, nil
}

func (s *service) LeaveEvent(ctx context.Context, eventID, userID uint) error {
	if err := s.store.Events().CloseAttendance(eventID, userID, time.Now()); err != nil {
		return err
	}
	s.broadcaster.Broadcast(roomID(eventID), map[string]interface{}{
		"type":     "viewer_left",
		"event_id": eventID,
	})
	return nil
}

// ensureWallet lazily creates the payee's wallet on their first
// financial interaction, inside the caller's atomic scope.
func ensureWallet(tx repositories.DataStore, userID uint) error {
	_, err := tx.Wallets().GetByUserID(userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return err
	}
	return tx.Wallets().Create(&models.Wallet{
		UserID:   userID,
		Currency: wallet.DefaultCurrency,
		Status:   models.WalletStatusActive,
	})
}

func (s *service) checkAccess(ctx context.Context, tx repositories.DataStore, ev *models.Event, userID uint) error {
	if ev.CreatorID == userID {
		return nil
	}
	switch ev.AccessType {
	case models.AccessTypeFree:
		return nil
	case models.AccessTypeTicketed:
		ticket, err := tx.Events().GetTicket(ev.ID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrTicketNotFound) {
				return ErrAccessDenied
			}
			return err
		}
		if ticket.RefundedAt != nil {
			return ErrAccessDenied
		}
		return nil
	case models.AccessTypeSubscriptionOnly, models.AccessTypeTierGated:
		ok, err := s.entitlements.HasEntitlement(ctx, userID, ev.ID)
		if err != nil {
			return fmt.Errorf("entitlement check failed: %w", err)
		}
		if !ok {
			return ErrAccessDenied
		}
		return nil
	default:
		return ErrAccessDenied
	}
}

func (s *service) transition(eventID, creatorID uint, from, to string, set map[string]interface{}) (*models.Event, error) {
	var event *models.Event
	err := s.store.ExecuteInTransaction(func(tx repositories.DataStore) error {
		var txErr error
		event, txErr = s.lockedTransition(tx, eventID, creatorID, from, to, set)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) lockedTransition(tx repositories.DataStore, eventID, creatorID uint, from, to string, set map[string]interface{}) (*models.Event, error) {
	ev, err := tx.Events().LockByID(eventID)
	if err != nil {
		return nil, err
	}
	if ev.CreatorID != creatorID {
		return nil, ErrNotEventCreator
	}
	if ev.Status != from {
		return nil, ErrInvalidTransition
	}
	if err := tx.Events().TransitionStatus(eventID, from, to, set); err != nil {
		return nil, err
	}
	// The snapshot was read before the update; mirror the written
	// values so callers see the row as committed.
	ev.Status = to
	if v, ok := set["actual_start_at"].(time.Time); ok {
		ev.ActualStartAt = &v
	}
	if v, ok := set["actual_end_at"].(time.Time); ok {
		ev.ActualEndAt = &v
	}
	return ev, nil
}

func roomID(eventID uint) string {
	return fmt.Sprintf("event:%d", eventID)
}
