package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Event{},
		&models.Category{},
		&models.Project{},
		&models.Activity{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// EnsureSystemUser creates the reserved sync account if it is missing and
// returns it. Machine-pushed projects are owned by this account.
func EnsureSystemUser(db *gorm.DB) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", models.SystemUsername).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("db: look up system user: %w", err)
	}

	user = models.User{Username: models.SystemUsername}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("db: create system user: %w", err)
	}
	return &user, nil
}

// Seed prepares a fresh database: system account plus a current demo event
// so pushed projects have somewhere to land.
func Seed(db *gorm.DB) error {
	if _, err := EnsureSystemUser(db); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Event{}).Count(&count).Error; err != nil {
		return fmt.Errorf("db: count events: %w", err)
	}
	if count > 0 {
		return nil
	}

	event := models.Event{
		Name:      "Demo Sprint",
		Summary:   "A sandbox event for trying out Hackboard.",
		IsCurrent: true,
		StartsAt:  time.Now(),
		EndsAt:    time.Now().Add(48 * time.Hour),
	}
	if err := db.Create(&event).Error; err != nil {
		return fmt.Errorf("db: seed demo event: %w", err)
	}
	return nil
}

// CurrentEvent returns the event flagged as current, falling back to the
// most recently created event.
func CurrentEvent(db *gorm.DB) (*models.Event, error) {
	var event models.Event
	err := db.Where("is_current = ?", true).Order("id DESC").First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Order("id DESC").First(&event).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("db: no events exist")
		}
		return nil, fmt.Errorf("db: current event: %w", err)
	}
	return &event, nil
}
