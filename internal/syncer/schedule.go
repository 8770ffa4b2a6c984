package syncer

import (
	"context"
	"fmt"
	"log"

	"github.com/hackboard/hackboard/internal/db"
	"github.com/hackboard/hackboard/internal/models"
	"github.com/robfig/cron/v3"
)

// StartSchedule re-syncs all auto-update projects on a standard 5-field
// cron schedule until ctx is cancelled.
func (c *Coordinator) StartSchedule(ctx context.Context, spec string) error {
	cr := cron.New()
	_, err := cr.AddFunc(spec, func() {
		if err := c.SyncAll(ctx); err != nil {
			log.Printf("syncer: scheduled run: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("syncer: parse schedule %q: %w", spec, err)
	}
	cr.Start()
	go func() {
		<-ctx.Done()
		cr.Stop()
	}()
	return nil
}

// SyncAll refreshes every visible project that has auto-update enabled
// and a metadata source, crediting the system account. Per-project
// failures are logged and do not stop the sweep.
func (c *Coordinator) SyncAll(ctx context.Context) error {
	system, err := db.EnsureSystemUser(c.db)
	if err != nil {
		return err
	}

	var projects []models.Project
	err = c.db.Where("is_autoupdate = ? AND is_hidden = ? AND autotext_url != ''", true, false).
		Find(&projects).Error
	if err != nil {
		return fmt.Errorf("syncer: list auto-update projects: %w", err)
	}

	for i := range projects {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := c.Sync(ctx, &projects[i], system); err != nil {
			log.Printf("syncer: project %d (%s): %v", projects[i].ID, projects[i].Name, err)
		}
	}
	return nil
}
