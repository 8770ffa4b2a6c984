package progress

import (
	"fmt"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/models"
	"gorm.io/gorm"
)

// Engine advances projects through the configured stage sequence.
type Engine struct {
	stages Stages
}

// New builds an engine over an immutable stage table.
func New(stages Stages) *Engine {
	return &Engine{stages: stages}
}

// Stages exposes the stage table for display purposes.
func (e *Engine) Stages() Stages {
	return e.stages
}

// Phase returns the human label for a project's current progress.
func (e *Engine) Phase(p *models.Project) string {
	return e.stages.Phase(p.Progress)
}

// PromoteResult describes the outcome of a promotion or approval attempt.
type PromoteResult struct {
	Advanced        bool
	Stage           Stage    // the stage the project is at after the call
	Unmet           []string // unmet conditions when Advanced is false
	AlreadyComplete bool     // promotion requested at the terminal stage
	NeedsApproval   bool     // promotion requested on an unapproved challenge
}

// Approve moves an unapproved challenge to the first stage. Only
// administrators may approve. Approving a project that already sits in the
// stage sequence is a no-op.
func (e *Engine) Approve(db *gorm.DB, project *models.Project, actor *models.User) (*PromoteResult, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, fmt.Errorf("progress: approve requires an administrator")
	}
	first, ok := e.stages.First()
	if !ok {
		return nil, fmt.Errorf("progress: stage table is empty")
	}

	if !project.IsChallenge() {
		current, _ := e.stages.At(project.ProgressValue())
		return &PromoteResult{Stage: current}, nil
	}

	if err := e.setStage(db, project, first, actor, "Challenge approved"); err != nil {
		return nil, err
	}
	return &PromoteResult{Advanced: true, Stage: first}, nil
}

// Promote attempts to advance the project one stage. The current stage's
// conditions are evaluated fresh against the stored project row on every
// attempt. A never-staged project is promoted straight to the first stage;
// an unapproved challenge reports that approval is still missing;
// promotion at the terminal stage reports completion instead of failing.
// Progress values between stage IDs, left behind by a push levelup nudge,
// count as the stage they last passed.
func (e *Engine) Promote(db *gorm.DB, project *models.Project, actor *models.User) (*PromoteResult, error) {
	// Re-read so conditions see current data, not what the caller holds.
	var fresh models.Project
	if err := db.First(&fresh, project.ID).Error; err != nil {
		return nil, fmt.Errorf("progress: load project %d: %w", project.ID, err)
	}

	if fresh.Progress == nil {
		first, ok := e.stages.First()
		if !ok {
			return nil, fmt.Errorf("progress: stage table is empty")
		}
		if err := e.setStage(db, &fresh, first, actor, "Entered the stage sequence"); err != nil {
			return nil, err
		}
		*project = fresh
		return &PromoteResult{Advanced: true, Stage: first}, nil
	}

	if *fresh.Progress < 0 {
		return &PromoteResult{NeedsApproval: true}, nil
	}

	current, ok := e.stages.At(*fresh.Progress)
	if !ok {
		// Below the first stage; enter the sequence properly.
		first, ok := e.stages.First()
		if !ok {
			return nil, fmt.Errorf("progress: stage table is empty")
		}
		if err := e.setStage(db, &fresh, first, actor, "Entered the stage sequence"); err != nil {
			return nil, err
		}
		*project = fresh
		return &PromoteResult{Advanced: true, Stage: first}, nil
	}
	if e.stages.IsTerminal(current.ID) {
		return &PromoteResult{Stage: current, AlreadyComplete: true}, nil
	}

	if unmet := current.Evaluate(&fresh); len(unmet) > 0 {
		return &PromoteResult{Stage: current, Unmet: unmet}, nil
	}

	next, ok := e.stages.Next(current.ID)
	if !ok {
		return &PromoteResult{Stage: current, AlreadyComplete: true}, nil
	}
	if err := e.setStage(db, &fresh, next, actor, "Promoted to "+next.Phase); err != nil {
		return nil, err
	}
	*project = fresh
	return &PromoteResult{Advanced: true, Stage: next}, nil
}

// setStage writes the new progress value and the matching ledger entry in
// one transaction.
func (e *Engine) setStage(db *gorm.DB, project *models.Project, stage Stage, actor *models.User, note string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).Where("id = ?", project.ID).
			Update("progress", stage.ID)
		if res.Error != nil {
			return fmt.Errorf("progress: set stage: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("progress: project not found: %d", project.ID)
		}
		id := stage.ID
		project.Progress = &id

		_, err := activity.Record(tx, project, models.ActivityUpdate, actor, activity.RecordOpts{
			Text: note,
		})
		return err
	})
}
