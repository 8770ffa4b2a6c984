// Package activity maintains the append-only project ledger.
//
// Every user-visible action on a project (join, leave, drib, sync, boost)
// becomes one immutable Activity row. Team membership and the ledger part
// of the project score are folds over those rows; the project's Score
// column is only a cache kept in step inside the same transaction as the
// append.
package activity

import (
	"errors"
	"fmt"

	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/gorm"
)

// Score deltas granted by ledger entries.
const (
	StarScore      = 2
	StarAdminScore = 10
	BoostScore     = 10
)

// RecordOpts holds optional parameters for recording an activity.
type RecordOpts struct {
	Action         string // sub-tag on update entries: post, sync, revert
	Text           string // free-text content (drib note, sync audit line)
	ProjectVersion *int   // snapshot pointer for later reversion
}

// Record appends a ledger entry for the given project and acting user.
//
// A star is idempotent per (user, project): when an unresolved star already
// exists the call is a no-op and returns (nil, nil). An unstar without a
// preceding star is likewise a no-op. The score delta granted by a star is
// stored on the row itself so the matching unstar can mirror it exactly.
// The ledger append and the project score update commit together or not
// at all.
func Record(db *gorm.DB, project *models.Project, kind string, user *models.User, opts RecordOpts) (*models.Activity, error) {
	if project == nil || project.ID == 0 {
		return nil, fmt.Errorf("activity: project is required")
	}
	switch kind {
	case models.ActivityCreate, models.ActivityUpdate, models.ActivityStar,
		models.ActivityUnstar, models.ActivityBoost:
	default:
		return nil, fmt.Errorf("activity: unknown kind %q", kind)
	}
	if (kind == models.ActivityStar || kind == models.ActivityUnstar) && (user == nil || user.ID == 0) {
		return nil, fmt.Errorf("activity: %s requires a user", kind)
	}

	entry := models.Activity{
		Name:           kind,
		Action:         opts.Action,
		Content:        opts.Text,
		ProjectID:      project.ID,
		ProjectVersion: opts.ProjectVersion,
	}
	if user != nil && user.ID != 0 {
		entry.UserID = &user.ID
	}

	var recorded bool
	err := db.Transaction(func(tx *gorm.DB) error {
		switch kind {
		case models.ActivityStar:
			last, err := lastMembershipEntry(tx, project.ID, *entry.UserID)
			if err != nil {
				return err
			}
			if last != nil && last.Name == models.ActivityStar {
				return nil // already on the team
			}
			entry.ScoreDelta = StarScore
			if user.IsAdmin {
				entry.ScoreDelta = StarAdminScore
			}
		case models.ActivityUnstar:
			last, err := lastMembershipEntry(tx, project.ID, *entry.UserID)
			if err != nil {
				return err
			}
			if last == nil || last.Name == models.ActivityUnstar {
				return nil // not on the team
			}
			entry.ScoreDelta = -last.ScoreDelta
		case models.ActivityBoost:
			entry.ScoreDelta = BoostScore
		}

		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("activity: append: %w", err)
		}
		recorded = true

		if entry.ScoreDelta == 0 {
			return nil
		}
		res := tx.Model(&models.Project{}).Where("id = ?", project.ID).
			Update("score", gorm.Expr("score + ?", entry.ScoreDelta))
		if res.Error != nil {
			return fmt.Errorf("activity: update score: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("activity: project not found: %d", project.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !recorded {
		return nil, nil
	}

	project.Score += entry.ScoreDelta
	return &entry, nil
}

// lastMembershipEntry returns the newest star/unstar row for the user on
// the project, or nil when none exists.
func lastMembershipEntry(tx *gorm.DB, projectID, userID uint) (*models.Activity, error) {
	var last models.Activity
	err := tx.Where("project_id = ? AND user_id = ? AND name IN ?",
		projectID, userID, []string{models.ActivityStar, models.ActivityUnstar}).
		Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("activity: membership lookup: %w", err)
	}
	return &last, nil
}

// FoldScore recomputes the ledger part of a project's score from scratch.
// It must always agree with the Score column on the project row.
func FoldScore(db *gorm.DB, projectID uint) (int, error) {
	var total int64
	err := db.Model(&models.Activity{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(SUM(score_delta), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("activity: fold score: %w", err)
	}
	return int(total), nil
}
