package models

import "time"

// Wallet holds one balance record per user. All amounts are integer
// minor-currency units (cents); floats never touch financial paths.
//
// Invariant: TotalBalanceCents >= AvailableBalanceCents >= 0. The total
// includes held/pending amounts on top of the spendable balance. Balances
// are mutated only by the transfer engine while the row is locked.
type Wallet struct {
	ID                    uint   `gorm:"primarykey"`
	UserID                uint   `gorm:"uniqueIndex;not null"`
	AvailableBalanceCents int64  `gorm:"not null;default:0"`
	TotalBalanceCents     int64  `gorm:"not null;default:0"`
	Currency              string `gorm:"default:'USD'"`
	Status                string `gorm:"default:'active'"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Wallet statuses
const (
	WalletStatusActive = "active"
	WalletStatusLocked = "locked"
)
