package models

import "time"

// Activity names. The ledger is append-only: rows are created through
// activity.Record and never updated.
const (
	ActivityCreate = "create"
	ActivityUpdate = "update"
	ActivityStar   = "star"
	ActivityUnstar = "unstar"
	ActivityBoost  = "boost"
)

// Activity action sub-tags used on update entries.
const (
	ActionPost   = "post"
	ActionSync   = "sync"
	ActionRevert = "revert"
)

// Activity is one immutable ledger entry tied to a project and, usually,
// an acting user. Team membership and the ledger part of the score are
// folds over these rows, never stored flags.
type Activity struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"size:16;not null;index"`
	Action  string `gorm:"size:16;index"`
	Content string `gorm:"type:text"`

	// ScoreDelta records the exact score change this entry granted so an
	// unstar can mirror the original grant even if the user's admin role
	// changed in between.
	ScoreDelta int `gorm:"default:0"`

	ProjectID      uint  `gorm:"not null;index"`
	UserID         *uint `gorm:"index"`
	ProjectVersion *int

	CreatedAt time.Time `gorm:"index"`

	Project Project `gorm:"foreignKey:ProjectID"`
	User    *User   `gorm:"foreignKey:UserID"`
}
