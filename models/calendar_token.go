package models

import "time"

// CalendarToken holds the Google OAuth tokens for calendar sync. A single
// row is kept; the refresh token is preserved when Google omits it from a
// refresh response.
type CalendarToken struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	AccessToken  string `gorm:"size:2048"`
	RefreshToken string `gorm:"size:512"`
	TokenType    string `gorm:"size:32"`
	Expiry       time.Time
}
