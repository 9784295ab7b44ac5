package models

import "time"

// Event statuses. Transitions: scheduled -> live -> ended, and
// scheduled|live -> cancelled. Nothing leaves ended or cancelled.
const (
	EventStatusScheduled = "scheduled"
	EventStatusLive      = "live"
	EventStatusEnded     = "ended"
	EventStatusCancelled = "cancelled"
)

// Access types
const (
	AccessTypeFree             = "free"
	AccessTypeTicketed         = "ticketed"
	AccessTypeSubscriptionOnly = "subscription_only"
	AccessTypeTierGated        = "tier_gated"
)

// Event is a schedulable live session hosted by a creator. Financial
// totals are updated only after the corresponding transfer committed;
// the ledger remains the source of truth for reconciliation.
type Event struct {
	ID                    uint   `gorm:"primarykey"`
	CreatorID             uint   `gorm:"index;not null"`
	Title                 string `gorm:"not null"`
	Status                string `gorm:"default:'scheduled'"`
	AccessType            string `gorm:"default:'free'"`
	PriceCents            int64  `gorm:"default:0"`
	MaxAttendees          *int
	ScheduledStartAt      time.Time
	ActualStartAt         *time.Time
	ActualEndAt           *time.Time
	TotalRevenueCents     int64 `gorm:"default:0"`
	TotalTipsCents        int64 `gorm:"default:0"`
	TotalAttendees        int   `gorm:"default:0"`
	PeakConcurrentViewers int   `gorm:"default:0"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
