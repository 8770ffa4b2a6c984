package activity

import (
	"fmt"

	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/gorm"
)

// Team returns the users currently on the project: everyone whose newest
// star/unstar ledger entry is a star, in order of first joining.
func Team(db *gorm.DB, projectID uint) ([]models.User, error) {
	var entries []models.Activity
	err := db.Where("project_id = ? AND name IN ?",
		projectID, []string{models.ActivityStar, models.ActivityUnstar}).
		Order("id ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("activity: team entries: %w", err)
	}

	state := make(map[uint]bool)
	var order []uint
	for _, e := range entries {
		if e.UserID == nil {
			continue
		}
		id := *e.UserID
		joined := e.Name == models.ActivityStar
		if joined && !state[id] {
			order = append(order, id)
		}
		state[id] = joined
	}

	var memberIDs []uint
	for _, id := range order {
		if state[id] {
			memberIDs = append(memberIDs, id)
		}
	}
	if len(memberIDs) == 0 {
		return nil, nil
	}

	var users []models.User
	if err := db.Where("id IN ?", memberIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("activity: team users: %w", err)
	}

	// Preserve join order.
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	team := make([]models.User, 0, len(memberIDs))
	for _, id := range memberIDs {
		if u, ok := byID[id]; ok {
			team = append(team, u)
		}
	}
	return team, nil
}

// IsMember reports whether the user's newest membership entry on the
// project is a star.
func IsMember(db *gorm.DB, projectID, userID uint) (bool, error) {
	last, err := lastMembershipEntry(db, projectID, userID)
	if err != nil {
		return false, err
	}
	return last != nil && last.Name == models.ActivityStar, nil
}
