package models

import "time"

// Event is a hackathon or sprint that projects belong to.
type Event struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:80;uniqueIndex;not null"`
	Summary       string `gorm:"size:140"`
	Location      string `gorm:"size:255"`
	HashtagPrefix string `gorm:"size:140"`
	IsCurrent     bool   `gorm:"default:false;index"`
	IsHidden      bool   `gorm:"default:false"`
	StartsAt      time.Time
	EndsAt        time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Projects   []Project  `gorm:"foreignKey:EventID"`
	Categories []Category `gorm:"foreignKey:EventID"`
}
