package models

import "time"

// ChallengeProgress is the progress value of an unapproved challenge.
const ChallengeProgress = -1

// Project is one team's submission: a challenge proposal that advances
// through the configured stage sequence once approved.
//
// Progress semantics: nil means the project was created but never staged,
// a negative value marks an unapproved challenge, and values >= 0 must be
// members of the configured stage table. Score caches the ledger-derived
// portion of the project score; it is written only inside the same
// transaction as the activity row that justifies the change.
type Project struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"size:80;not null;uniqueIndex:idx_project_event_name"`
	Summary string `gorm:"size:140"`
	Hashtag string `gorm:"size:140;index"`

	// User-authored and machine-fetched descriptions are kept apart so a
	// sync never clobbers what a human wrote.
	Longtext    string `gorm:"type:text"`
	Autotext    string `gorm:"type:text"`
	AutotextURL string `gorm:"size:2048"`

	WebpageURL  string `gorm:"size:2048"`
	SourceURL   string `gorm:"size:2048"`
	ContactURL  string `gorm:"size:2048"`
	DownloadURL string `gorm:"size:2048"`
	ImageURL    string `gorm:"size:2048"`
	LogoColor   string `gorm:"size:7"`
	LogoIcon    string `gorm:"size:40"`

	Progress     *int `gorm:"index"`
	Score        int  `gorm:"default:0"`
	Version      int  `gorm:"default:0"`
	IsHidden     bool `gorm:"default:false;index"`
	IsAutoupdate bool `gorm:"default:true"`

	// The name identifies the project within its event.
	EventID    uint  `gorm:"index;not null;uniqueIndex:idx_project_event_name"`
	CategoryID *uint `gorm:"index"`
	UserID     *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Event      Event      `gorm:"foreignKey:EventID"`
	Category   *Category  `gorm:"foreignKey:CategoryID"`
	Owner      *User      `gorm:"foreignKey:UserID"`
	Activities []Activity `gorm:"foreignKey:ProjectID"`
}

// IsChallenge reports whether the project is still an unapproved proposal.
func (p *Project) IsChallenge() bool {
	return p.Progress == nil || *p.Progress < 0
}

// ProgressValue returns the stage value, treating nil as below stage zero.
func (p *Project) ProgressValue() int {
	if p.Progress == nil {
		return ChallengeProgress
	}
	return *p.Progress
}
