package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/db"
	"github.com/hackboard/hackboard/internal/models"
	"github.com/hackboard/hackboard/internal/progress"
)

// pushRequest is the machine-to-machine metadata push body. Hashtag is the
// lookup key; everything else is optional.
type pushRequest struct {
	Hashtag     string `json:"hashtag"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	Longtext    string `json:"longtext"`
	AutotextURL string `json:"autotext_url"`
	Levelup     int    `json:"levelup"`
}

// handlePush creates or updates a project from an external tool. New
// projects land on the system account at the first stage of the current
// event. Pushes never touch projects that a person owns or that a
// moderator hid.
func (s *Server) handlePush(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Hashtag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a hashtag field is required"})
		return
	}

	system, err := db.EnsureSystemUser(s.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "system account unavailable"})
		return
	}

	var project models.Project
	err = s.db.Where("hashtag = ?", req.Hashtag).First(&project).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, cerr := s.createPushedProject(&req, system)
		if cerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": cerr.Error()})
			return
		}
		project = *created
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project lookup failed"})
		return
	default:
		if project.IsHidden {
			c.JSON(http.StatusForbidden, gin.H{"error": "project is hidden"})
			return
		}
		if project.UserID != nil && *project.UserID != system.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "project is owned by a user"})
			return
		}
		if uerr := s.updatePushedProject(&project, &req, system); uerr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": uerr.Error()})
			return
		}
	}

	// Implicit sync: while no human has written a long description, a push
	// that supplies a metadata source also pulls from it.
	if project.AutotextURL != "" && project.Longtext == "" {
		if _, serr := s.syncer.Sync(c.Request.Context(), &project, nil); serr != nil {
			log.Printf("server: push sync for %q: %v", project.Hashtag, serr)
		}
	}

	view, verr := s.buildProjectView(s.db, &project)
	if verr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assemble project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "project": view})
}

// createPushedProject inserts a fresh project at the first stage of the
// current event, owned by the system account.
func (s *Server) createPushedProject(req *pushRequest, system *models.User) (*models.Project, error) {
	event, err := db.CurrentEvent(s.db)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = req.Hashtag
	}
	start := 0
	if req.Levelup != 0 {
		start = progress.ClampNudge(start, req.Levelup)
	}

	project := models.Project{
		Name:         name,
		Hashtag:      req.Hashtag,
		Summary:      req.Summary,
		Longtext:     req.Longtext,
		AutotextURL:  req.AutotextURL,
		Progress:     &start,
		IsAutoupdate: true,
		EventID:      event.ID,
		UserID:       &system.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		_, err := activity.Record(tx, &project, models.ActivityCreate, system, activity.RecordOpts{
			Text: "Created by push",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// updatePushedProject merges the push body into an existing system-owned
// project. Only supplied fields change, and the name is kept once set so a
// renamed project does not flip back on every push.
func (s *Server) updatePushedProject(project *models.Project, req *pushRequest, system *models.User) error {
	if project.Name == "" && req.Name != "" {
		project.Name = req.Name
	}
	if req.Summary != "" {
		project.Summary = req.Summary
	}
	if req.Longtext != "" {
		project.Longtext = req.Longtext
	}
	if req.AutotextURL != "" {
		project.AutotextURL = req.AutotextURL
	}
	if req.Levelup != 0 {
		base := project.ProgressValue()
		if base < 0 {
			base = 0
		}
		next := progress.ClampNudge(base, req.Levelup)
		project.Progress = &next
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		project.Version++
		// The ledger owns the score column.
		if err := tx.Omit("score").Save(project).Error; err != nil {
			return err
		}
		version := project.Version
		_, err := activity.Record(tx, project, models.ActivityUpdate, system, activity.RecordOpts{
			Action:         models.ActionSync,
			Text:           "Updated by push",
			ProjectVersion: &version,
		})
		return err
	})
}
