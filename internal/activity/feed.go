package activity

import (
	"fmt"

	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/gorm"
)

// FeedFilters narrows the dribs feed. Exactly one of EventID or ProjectID
// is normally set; both zero returns the instance-wide feed.
type FeedFilters struct {
	EventID   uint
	ProjectID uint
	Limit     int
}

// Dribs returns progress posts and boosts, newest first. These are the
// entries worth showing on an event wall: updates tagged as posts, and
// admin boosts.
func Dribs(db *gorm.DB, filters FeedFilters) ([]models.Activity, error) {
	q := db.Model(&models.Activity{}).
		Where("(name = ? AND action = ?) OR name = ?",
			models.ActivityUpdate, models.ActionPost, models.ActivityBoost).
		Preload("User").Preload("Project").
		Order("activities.id DESC")

	if filters.ProjectID != 0 {
		q = q.Where("activities.project_id = ?", filters.ProjectID)
	}
	if filters.EventID != 0 {
		q = q.Joins("JOIN projects ON projects.id = activities.project_id").
			Where("projects.event_id = ? AND projects.is_hidden = ?", filters.EventID, false)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	q = q.Limit(limit)

	var dribs []models.Activity
	if err := q.Find(&dribs).Error; err != nil {
		return nil, fmt.Errorf("activity: dribs feed: %w", err)
	}
	return dribs, nil
}
