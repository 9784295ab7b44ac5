package models

import "time"

// EventAttendance tracks presence in an event room, separate from
// ticketing. Not financial, but it gates realtime broadcast fan-out.
type EventAttendance struct {
	ID              uint `gorm:"primarykey"`
	EventID         uint `gorm:"index;not null"`
	UserID          uint `gorm:"index;not null"`
	JoinedAt        time.Time
	LeftAt          *time.Time
	IsActive        bool `gorm:"default:true"`
	DurationSeconds int  `gorm:"default:0"`
}
