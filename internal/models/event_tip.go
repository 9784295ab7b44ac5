package models

import "time"

// EventTip records a tip sent during a live event. The transfer moving
// the money is referenced by TransactionID; the tip row itself is not a
// financial record.
type EventTip struct {
	ID            uint   `gorm:"primarykey"`
	EventID       uint   `gorm:"index;not null"`
	FromUserID    uint   `gorm:"not null"`
	ToUserID      uint   `gorm:"not null"`
	AmountCents   int64  `gorm:"not null"`
	Message       string
	IsAnonymous   bool   `gorm:"default:false"`
	TransactionID string `gorm:"index"`
	CreatedAt     time.Time
}
