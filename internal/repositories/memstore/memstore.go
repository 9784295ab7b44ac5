// Package memstore is an in-memory DataStore used by service tests.
// A single mutex serializes transactions the way row locks serialize
// them in Postgres, and every transaction runs against a snapshot that
// is thrown away on error, so rollback semantics hold too.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"stagepay/internal/models"
	"stagepay/internal/repositories"

	"gorm.io/gorm"
)

type state struct {
	nextWalletID uint
	nextEntryID  uint
	nextEventID  uint
	nextTicketID uint
	nextTipID    uint
	nextAttID    uint

	wallets    map[uint]models.Wallet
	entries    []models.LedgerEntry
	events     map[uint]models.Event
	tickets    map[uint]models.EventTicket
	tips       []models.EventTip
	attendance []models.EventAttendance
}

func newState() *state {
	return &state{
		nextWalletID: 1,
		nextEntryID:  1,
		nextEventID:  1,
		nextTicketID: 1,
		nextTipID:    1,
		nextAttID:    1,
		wallets:      make(map[uint]models.Wallet),
		events:       make(map[uint]models.Event),
		tickets:      make(map[uint]models.EventTicket),
	}
}

func (st *state) clone() *state {
	cp := *st
	cp.wallets = make(map[uint]models.Wallet, len(st.wallets))
	for k, v := range st.wallets {
		cp.wallets[k] = v
	}
	cp.events = make(map[uint]models.Event, len(st.events))
	for k, v := range st.events {
		cp.events[k] = v
	}
	cp.tickets = make(map[uint]models.EventTicket, len(st.tickets))
	for k, v := range st.tickets {
		cp.tickets[k] = v
	}
	cp.entries = append([]models.LedgerEntry(nil), st.entries...)
	cp.tips = append([]models.EventTip(nil), st.tips...)
	cp.attendance = append([]models.EventAttendance(nil), st.attendance...)
	return &cp
}

// Store implements repositories.DataStore in memory.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

// New creates an empty store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) Wallets() repositories.WalletRepository { return &walletRepo{s} }
func (s *Store) Ledger() repositories.LedgerRepository  { return &ledgerRepo{s} }
func (s *Store) Events() repositories.EventRepository   { return &eventRepo{s} }

func (s *Store) ExecuteInTransaction(fn func(repositories.DataStore) error) error {
	s.lock()
	defer s.unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

// SeedWallet inserts a wallet directly, bypassing business rules.
func (s *Store) SeedWallet(userID uint, availableCents int64) *models.Wallet {
	w := &models.Wallet{
		UserID:                userID,
		AvailableBalanceCents: availableCents,
		TotalBalanceCents:     availableCents,
		Currency:              "USD",
		Status:                models.WalletStatusActive,
	}
	if err := s.Wallets().Create(w); err != nil {
		panic(err)
	}
	return w
}

// SeedEvent inserts an event directly, bypassing business rules.
func (s *Store) SeedEvent(ev *models.Event) *models.Event {
	if err := s.Events().Create(ev); err != nil {
		panic(err)
	}
	return ev
}

// SetWalletStatus flips a wallet's status directly, for tests that need
// a locked wallet.
func (s *Store) SetWalletStatus(walletID uint, status string) {
	s.lock()
	defer s.unlock()
	w, ok := s.st.wallets[walletID]
	if !ok {
		panic("wallet not found")
	}
	w.Status = status
	s.st.wallets[walletID] = w
}

// LedgerEntries returns a copy of every appended entry.
func (s *Store) LedgerEntries() []models.LedgerEntry {
	s.lock()
	defer s.unlock()
	return append([]models.LedgerEntry(nil), s.st.entries...)
}

// --- wallets ---

type walletRepo struct {
	s *Store
}

func (r *walletRepo) Create(wallet *models.Wallet) error {
	r.s.lock()
	defer r.s.unlock()
	for _, w := range r.s.st.wallets {
		if w.UserID == wallet.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	wallet.ID = r.s.st.nextWalletID
	r.s.st.nextWalletID++
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	r.s.st.wallets[wallet.ID] = *wallet
	return nil
}

func (r *walletRepo) GetByID(id uint) (*models.Wallet, error) {
	r.s.lock()
	defer r.s.unlock()
	w, ok := r.s.st.wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return &w, nil
}

func (r *walletRepo) GetByUserID(userID uint) (*models.Wallet, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.byUserID(userID)
}

func (r *walletRepo) LockByUserID(userID uint) (*models.Wallet, error) {
	// The transaction mutex already serializes access; a row lock
	// degenerates to a plain read here.
	r.s.lock()
	defer r.s.unlock()
	return r.byUserID(userID)
}

func (r *walletRepo) byUserID(userID uint) (*models.Wallet, error) {
	for _, w := range r.s.st.wallets {
		if w.UserID == userID {
			cp := w
			return &cp, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (r *walletRepo) ApplyDelta(walletID uint, deltaAvailable, deltaTotal int64) error {
	r.s.lock()
	defer r.s.unlock()
	w, ok := r.s.st.wallets[walletID]
	if !ok {
		return repositories.ErrIntegrity
	}
	if w.AvailableBalanceCents+deltaAvailable < 0 || w.TotalBalanceCents+deltaTotal < 0 {
		return repositories.ErrIntegrity
	}
	w.AvailableBalanceCents += deltaAvailable
	w.TotalBalanceCents += deltaTotal
	w.UpdatedAt = time.Now()
	r.s.st.wallets[walletID] = w
	return nil
}

func (r *walletRepo) GetTotalBalance(ctx context.Context) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var total int64
	for _, w := range r.s.st.wallets {
		total += w.TotalBalanceCents
	}
	return total, nil
}

func (r *walletRepo) CountByStatus(status string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var n int64
	for _, w := range r.s.st.wallets {
		if w.Status == status {
			n++
		}
	}
	return n, nil
}

// --- ledger ---

type ledgerRepo struct {
	s *Store
}

func (r *ledgerRepo) Append(entry *models.LedgerEntry) error {
	r.s.lock()
	defer r.s.unlock()
	entry.ID = r.s.st.nextEntryID
	r.s.st.nextEntryID++
	entry.CreatedAt = time.Now()
	r.s.st.entries = append(r.s.st.entries, *entry)
	return nil
}

func (r *ledgerRepo) ByTransaction(transactionID string) ([]models.LedgerEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []models.LedgerEntry
	for _, e := range r.s.st.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *ledgerRepo) SumByTransaction(transactionID string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var sum int64
	for _, e := range r.s.st.entries {
		if e.TransactionID != transactionID {
			continue
		}
		if e.EntryType == models.EntryTypeCredit {
			sum += e.AmountCents
		} else {
			sum -= e.AmountCents
		}
	}
	return sum, nil
}

func (r *ledgerRepo) HistoryByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []models.LedgerEntry
	for _, e := range r.s.st.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *ledgerRepo) SumByUserAndType(ctx context.Context, userID uint, entryType, transactionType string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	var sum int64
	for _, e := range r.s.st.entries {
		if e.UserID == userID && e.EntryType == entryType && e.TransactionType == transactionType {
			sum += e.AmountCents
		}
	}
	return sum, nil
}

// --- events ---

type eventRepo struct {
	s *Store
}

func (r *eventRepo) Create(event *models.Event) error {
	r.s.lock()
	defer r.s.unlock()
	event.ID = r.s.st.nextEventID
	r.s.st.nextEventID++
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = models.EventStatusScheduled
	}
	r.s.st.events[event.ID] = *event
	return nil
}

func (r *eventRepo) GetByID(id uint) (*models.Event, error) {
	r.s.lock()
	defer r.s.unlock()
	ev, ok := r.s.st.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	return &ev, nil
}

func (r *eventRepo) LockByID(id uint) (*models.Event, error) {
	return r.GetByID(id)
}

func (r *eventRepo) ListByCreator(creatorID uint) ([]models.Event, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []models.Event
	for _, ev := range r.s.st.events {
		if ev.CreatorID == creatorID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *eventRepo) TransitionStatus(eventID uint, from, to string, set map[string]interface{}) error {
	r.s.lock()
	defer r.s.unlock()
	ev, ok := r.s.st.events[eventID]
	if !ok || ev.Status != from {
		return repositories.ErrIntegrity
	}
	ev.Status = to
	if v, ok := set["actual_start_at"].(time.Time); ok {
		ev.ActualStartAt = &v
	}
	if v, ok := set["actual_end_at"].(time.Time); ok {
		ev.ActualEndAt = &v
	}
	ev.UpdatedAt = time.Now()
	r.s.st.events[eventID] = ev
	return nil
}

func (r *eventRepo) CreateTicket(ticket *models.EventTicket) error {
	r.s.lock()
	defer r.s.unlock()
	for _, t := range r.s.st.tickets {
		if t.EventID == ticket.EventID && t.FanID == ticket.FanID {
			return repositories.ErrDuplicateTicket
		}
	}
	ticket.ID = r.s.st.nextTicketID
	r.s.st.nextTicketID++
	ticket.CreatedAt = time.Now()
	r.s.st.tickets[ticket.ID] = *ticket
	return nil
}

func (r *eventRepo) SetTicketTransaction(ticketID uint, transactionID string) error {
	r.s.lock()
	defer r.s.unlock()
	t, ok := r.s.st.tickets[ticketID]
	if !ok {
		return repositories.ErrIntegrity
	}
	t.TransactionID = transactionID
	r.s.st.tickets[ticketID] = t
	return nil
}

func (r *eventRepo) GetTicket(eventID, fanID uint) (*models.EventTicket, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, t := range r.s.st.tickets {
		if t.EventID == eventID && t.FanID == fanID {
			cp := t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTicketNotFound
}

func (r *eventRepo) CountActiveTickets(eventID uint) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	n := 0
	for _, t := range r.s.st.tickets {
		if t.EventID == eventID && t.RefundedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *eventRepo) ListActiveTickets(eventID uint) ([]models.EventTicket, error) {
	r.s.lock()
	defer r.s.unlock()
	var out []models.EventTicket
	for _, t := range r.s.st.tickets {
		if t.EventID == eventID && t.RefundedAt == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *eventRepo) MarkTicketRefunded(ticketID uint, at time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	t, ok := r.s.st.tickets[ticketID]
	if !ok {
		return repositories.ErrTicketNotFound
	}
	if t.RefundedAt != nil {
		return repositories.ErrTicketAlreadyRefunded
	}
	t.RefundedAt = &at
	r.s.st.tickets[ticketID] = t
	return nil
}

func (r *eventRepo) CreateTip(tip *models.EventTip) error {
	r.s.lock()
	defer r.s.unlock()
	tip.ID = r.s.st.nextTipID
	r.s.st.nextTipID++
	tip.CreatedAt = time.Now()
	r.s.st.tips = append(r.s.st.tips, *tip)
	return nil
}

func (r *eventRepo) AddRevenue(eventID uint, deltaCents int64) error {
	return r.mutate(eventID, func(ev *models.Event) {
		ev.TotalRevenueCents += deltaCents
	})
}

func (r *eventRepo) AddTips(eventID uint, deltaCents int64) error {
	return r.mutate(eventID, func(ev *models.Event) {
		ev.TotalTipsCents += deltaCents
	})
}

func (r *eventRepo) ResetRevenue(eventID uint) error {
	return r.mutate(eventID, func(ev *models.Event) {
		ev.TotalRevenueCents = 0
	})
}

func (r *eventRepo) mutate(eventID uint, fn func(*models.Event)) error {
	r.s.lock()
	defer r.s.unlock()
	ev, ok := r.s.st.events[eventID]
	if !ok {
		return repositories.ErrEventNotFound
	}
	fn(&ev)
	ev.UpdatedAt = time.Now()
	r.s.st.events[eventID] = ev
	return nil
}

func (r *eventRepo) CreateAttendance(att *models.EventAttendance) error {
	r.s.lock()
	defer r.s.unlock()
	att.ID = r.s.st.nextAttID
	r.s.st.nextAttID++
	r.s.st.attendance = append(r.s.st.attendance, *att)
	return nil
}

func (r *eventRepo) ActiveAttendance(eventID, userID uint) (*models.EventAttendance, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, a := range r.s.st.attendance {
		if a.EventID == eventID && a.UserID == userID && a.IsActive {
			cp := a
			return &cp, nil
		}
	}
	return nil, repositories.ErrAttendanceNotFound
}

func (r *eventRepo) HasAttended(eventID, userID uint) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	for _, a := range r.s.st.attendance {
		if a.EventID == eventID && a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *eventRepo) CloseAttendance(eventID, userID uint, leftAt time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	found := false
	for i, a := range r.s.st.attendance {
		if a.EventID == eventID && a.UserID == userID && a.IsActive {
			r.closeAt(i, leftAt)
			found = true
		}
	}
	if !found {
		return repositories.ErrAttendanceNotFound
	}
	return nil
}

func (r *eventRepo) CloseAllAttendance(eventID uint, leftAt time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	for i, a := range r.s.st.attendance {
		if a.EventID == eventID && a.IsActive {
			r.closeAt(i, leftAt)
		}
	}
	return nil
}

func (r *eventRepo) closeAt(i int, leftAt time.Time) {
	a := r.s.st.attendance[i]
	a.IsActive = false
	a.LeftAt = &leftAt
	a.DurationSeconds = int(leftAt.Sub(a.JoinedAt).Seconds())
	r.s.st.attendance[i] = a
}

func (r *eventRepo) CountActiveAttendance(eventID uint) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	n := 0
	for _, a := range r.s.st.attendance {
		if a.EventID == eventID && a.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *eventRepo) RecordJoinStats(eventID uint, newAttendee bool, concurrent int) error {
	return r.mutate(eventID, func(ev *models.Event) {
		if newAttendee {
			ev.TotalAttendees++
		}
		if concurrent > ev.PeakConcurrentViewers {
			ev.PeakConcurrentViewers = concurrent
		}
	})
}
