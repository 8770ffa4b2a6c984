package models

import "time"

// Category groups projects within an event. A category with no EventID is
// global and available to every event.
type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:80;not null"`
	Description string `gorm:"type:text"`
	LogoColor   string `gorm:"size:7"`
	LogoIcon    string `gorm:"size:40"`
	EventID     *uint  `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Event *Event `gorm:"foreignKey:EventID"`
}
