package models

import "time"

// User roles
const (
	RoleFan     = "fan"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

type User struct {
	ID           uint   `gorm:"primarykey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null" json:"-"`
	DisplayName  string
	Role         string `gorm:"default:'fan'"`
	TokenVersion int    `gorm:"default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
