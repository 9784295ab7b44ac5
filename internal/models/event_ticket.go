package models

import "time"

// EventTicket is one admission per (event, fan) pair; the composite
// unique index rejects duplicate purchases at the store level. A ticket
// counts toward event capacity iff RefundedAt is nil.
type EventTicket struct {
	ID             uint   `gorm:"primarykey"`
	EventID        uint   `gorm:"uniqueIndex:idx_event_fan;not null"`
	FanID          uint   `gorm:"uniqueIndex:idx_event_fan;not null"`
	PricePaidCents int64  `gorm:"not null"`
	TransactionID  string `gorm:"index"`
	RefundedAt     *time.Time
	CreatedAt      time.Time
}
