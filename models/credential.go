package models

import "time"

// Credential stores the bcrypt hash of the single shared admin password.
// The table holds at most one row; setup is rejected once a row exists.
type Credential struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	PasswordHash []byte `gorm:"not null"`
}
