package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrAttendanceNotFound    = errors.New("attendance not found")
	ErrDuplicateTicket       = errors.New("ticket already exists for this fan and event")
	ErrTicketAlreadyRefunded = errors.New("ticket already refunded")

	// ErrIntegrity means a write that had to touch exactly one row
	// touched none. That is a lost lock or a data-model violation, not
	// a transient fault; callers abort and never retry.
	ErrIntegrity = errors.New("write affected no rows")
)

// DataStore aggregates the repositories that take part in financial
// transactions. ExecuteInTransaction rebinds every repository to one
// database transaction so a transfer and its business writes (ticket,
// tip) share a single atomic scope with full rollback.
type DataStore interface {
	Wallets() WalletRepository
	Ledger() LedgerRepository
	Events() EventRepository
	ExecuteInTransaction(fn func(DataStore) error) error
}

type dataStore struct {
	db *gorm.DB
}

// NewDataStore creates a DataStore over a gorm connection.
func NewDataStore(db *gorm.DB) DataStore {
	return &dataStore{db: db}
}

func (s *dataStore) Wallets() WalletRepository { return &walletRepository{db: s.db} }
func (s *dataStore) Ledger() LedgerRepository  { return &ledgerRepository{db: s.db} }
func (s *dataStore) Events() EventRepository   { return &eventRepository{db: s.db} }

func (s *dataStore) ExecuteInTransaction(fn func(DataStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&dataStore{db: tx})
	})
}
