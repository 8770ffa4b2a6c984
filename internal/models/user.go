package models

import "time"

// SystemUsername is the reserved account that owns machine-pushed projects
// and is credited for scheduled sync activities.
const SystemUsername = "sync-bot"

// User is a registered participant, organizer, or administrator.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:80;uniqueIndex;not null"`
	Email        string `gorm:"size:254"`
	PasswordHash string `gorm:"size:128"`
	APIKey       string `gorm:"size:64;index"`
	IsAdmin      bool   `gorm:"default:false"`
	SSOProvider  string `gorm:"size:32"`
	SSOID        string `gorm:"size:128"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsSystem reports whether this is the reserved sync account.
func (u *User) IsSystem() bool {
	return u.Username == SystemUsername
}
