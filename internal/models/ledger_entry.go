package models

import "time"

// Entry types
const (
	EntryTypeDebit  = "debit"
	EntryTypeCredit = "credit"
)

// Transaction types
const (
	TransactionTypePayment    = "payment"
	TransactionTypeTip        = "tip"
	TransactionTypeRefund     = "refund"
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

// Reference types linking an entry back to the business object that
// caused the movement.
const (
	ReferenceTypeEventTicket = "event_ticket"
	ReferenceTypeEventTip    = "event_tip"
	ReferenceTypeTreasury    = "treasury"
)

// LedgerEntry is one half of a double-entry transaction. Every transfer
// writes exactly one debit and one credit sharing a TransactionID, and
// their amounts always match. Entries are append-only and never updated
// or deleted after commit.
type LedgerEntry struct {
	ID                uint   `gorm:"primarykey"`
	TransactionID     string `gorm:"index;not null"`
	WalletID          uint   `gorm:"index;not null"`
	UserID            uint   `gorm:"index;not null"`
	EntryType         string `gorm:"not null"`
	TransactionType   string `gorm:"not null"`
	AmountCents       int64  `gorm:"not null"`
	BalanceAfterCents int64  `gorm:"not null"`
	Currency          string `gorm:"default:'USD'"`
	ReferenceType     string
	ReferenceID       uint
	Description       string
	Metadata          Metadata `gorm:"type:jsonb"`
	CreatedAt         time.Time
}
