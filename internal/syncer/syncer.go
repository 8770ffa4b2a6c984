// Package syncer merges externally fetched metadata into project records.
package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/fetch"
	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/gorm"
)

// ErrNoRemoteName marks a fetch result unusable for syncing: the remote
// must expose at least a name (a README or equivalent).
var ErrNoRemoteName = errors.New("syncer: remote data has no name; check that the link contains a README or equivalent")

// ErrNotAllowed is returned when the sync guards reject the caller.
var ErrNotAllowed = errors.New("syncer: sync not allowed")

// Coordinator drives fetch-and-merge cycles for projects.
type Coordinator struct {
	db      *gorm.DB
	fetcher *fetch.Fetcher
}

// New builds a Coordinator over the durable store and a fetcher.
func New(db *gorm.DB, fetcher *fetch.Fetcher) *Coordinator {
	return &Coordinator{db: db, fetcher: fetcher}
}

// CanSync checks the guards once, up front: the project must be visible
// and auto-updatable, and the caller must be on the team or an admin.
// The nil caller is the system itself (scheduled sync, push endpoint).
func (c *Coordinator) CanSync(project *models.Project, user *models.User) error {
	if project.IsHidden {
		return fmt.Errorf("%w: project is hidden", ErrNotAllowed)
	}
	if !project.IsAutoupdate {
		return fmt.Errorf("%w: auto-update is disabled for this project", ErrNotAllowed)
	}
	if user == nil || user.IsAdmin || user.IsSystem() {
		return nil
	}
	member, err := activity.IsMember(c.db, project.ID, user.ID)
	if err != nil {
		return err
	}
	if !member {
		return fmt.Errorf("%w: only team members or admins may sync", ErrNotAllowed)
	}
	return nil
}

// Sync fetches the project's metadata source and merges the result. The
// guards are checked once before the fetch; no database locks are held
// while the remote request is in flight. A timed-out or empty fetch
// merges nothing and records nothing.
func (c *Coordinator) Sync(ctx context.Context, project *models.Project, user *models.User) (*fetch.ExternalMetadata, error) {
	if err := c.CanSync(project, user); err != nil {
		return nil, err
	}
	if project.AutotextURL == "" {
		return nil, fmt.Errorf("syncer: project %d has no metadata source", project.ID)
	}

	data := c.fetcher.Fetch(ctx, project.AutotextURL)
	if err := c.Apply(project, user, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Apply merges already-fetched metadata into the project and appends the
// audit entry, both in one transaction. Data without a name fails the
// sync outright: no merge, no ledger entry.
func (c *Coordinator) Apply(project *models.Project, user *models.User, data *fetch.ExternalMetadata) error {
	if data == nil || data.Name == "" {
		return ErrNoRemoteName
	}

	merged := Merge(project, data)
	return c.db.Transaction(func(tx *gorm.DB) error {
		project.Version++
		// Score and progress are owned by their own transactions; a merge
		// must not write back stale copies of them.
		if err := tx.Omit("score", "progress").Save(project).Error; err != nil {
			return fmt.Errorf("syncer: save project %d: %w", project.ID, err)
		}
		version := project.Version
		_, err := activity.Record(tx, project, models.ActivityUpdate, user, activity.RecordOpts{
			Action:         models.ActionSync,
			Text:           fmt.Sprintf("Synced %d bytes from %s", merged, data.Type),
			ProjectVersion: &version,
		})
		return err
	})
}

// Merge copies fetched fields onto the project, additively: an empty
// incoming value never blanks a populated field, and a user-authored
// long description is never overwritten. It returns the number of bytes
// taken over, for the audit entry.
func Merge(p *models.Project, data *fetch.ExternalMetadata) int {
	merged := 0
	assign := func(dst *string, src string) {
		if len(src) > 0 {
			*dst = src
			merged += len(src)
		}
	}

	assign(&p.Name, data.Name)
	assign(&p.Summary, data.Summary)
	assign(&p.Autotext, data.Description)
	assign(&p.WebpageURL, data.HomepageURL)
	assign(&p.SourceURL, data.SourceURL)
	assign(&p.ImageURL, data.ImageURL)
	assign(&p.ContactURL, data.ContactURL)
	assign(&p.DownloadURL, data.DownloadURL)

	// Only seed the long description while no human has written one.
	if p.Longtext == "" && data.Description != "" {
		p.Longtext = data.Description
	}
	return merged
}
