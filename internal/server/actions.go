package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/models"
	"github.com/hackboard/hackboard/internal/notify"
	"github.com/hackboard/hackboard/internal/syncer"
)

// announce forwards an event to the configured chat channels. Delivery is
// best-effort and never affects the response.
func (s *Server) announce(c *gin.Context, title, body string, project *models.Project) {
	s.notifier.Announce(c.Request.Context(), notify.Event{
		Title: title,
		Body:  body,
		URL:   fmt.Sprintf("/project/%d", project.ID),
	})
}

// handleResync fetches the project's metadata source and merges the result.
// A remote without a usable name yields a warning, not an error.
func (s *Server) handleResync(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)

	data, err := s.syncer.Sync(c.Request.Context(), project, user)
	switch {
	case errors.Is(err, syncer.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, syncer.ErrNoRemoteName):
		c.JSON(http.StatusOK, gin.H{
			"status":  "warning",
			"message": "Nothing could be synced. Please verify that the link points to a README or equivalent.",
		})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, verr := s.buildProjectView(s.db, project)
	if verr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assemble project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("Synced from %s.", data.Type),
		"project": view,
	})
}

// handleApprove moves a challenge into the stage sequence. Admin only.
func (s *Server) handleApprove(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)
	if !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators may approve challenges"})
		return
	}

	result, err := s.engine.Approve(s.db, project, user)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !result.Advanced {
		c.JSON(http.StatusOK, gin.H{"status": "noop", "message": "Project is already approved."})
		return
	}
	s.announce(c, project.Name+" was approved", "The challenge entered the stage sequence.", project)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("Approved: now at stage %s.", result.Stage.Phase),
	})
}

// handlePromote attempts to advance the project one stage.
func (s *Server) handlePromote(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)

	result, err := s.engine.Promote(s.db, project, user)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch {
	case result.NeedsApproval:
		c.JSON(http.StatusOK, gin.H{
			"status":  "noop",
			"message": "The challenge must be approved before it can be promoted.",
		})
	case result.AlreadyComplete:
		c.JSON(http.StatusOK, gin.H{
			"status":  "noop",
			"message": "The project has already reached the final stage.",
		})
	case !result.Advanced:
		c.JSON(http.StatusOK, gin.H{
			"status":  "unmet",
			"message": "Not yet valid: " + strings.Join(result.Unmet, "; "),
			"unmet":   result.Unmet,
		})
	default:
		s.announce(c, project.Name+" reached "+result.Stage.Phase, "", project)
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Promoted to " + result.Stage.Phase + ".",
		})
	}
}

// handleStar joins the caller to the project team. Re-starring is a no-op.
func (s *Server) handleStar(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)

	entry, err := activity.Record(s.db, project, models.ActivityStar, user, activity.RecordOpts{})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"status": "noop", "message": "You are already on the team."})
		return
	}
	s.announce(c, user.Username+" joined "+project.Name, "", project)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Welcome to the team."})
}

// handleUnstar removes the caller from the team. Leaving a team you are
// not on is a no-op.
func (s *Server) handleUnstar(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)

	entry, err := activity.Record(s.db, project, models.ActivityUnstar, user, activity.RecordOpts{})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"status": "noop", "message": "You were not on the team."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "You left the team."})
}

// handlePost records a drib: a free-text progress note from a team member
// or an administrator.
func (s *Server) handlePost(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a text field is required"})
		return
	}

	if !user.IsAdmin {
		member, err := activity.IsMember(s.db, project.ID, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "only team members may post"})
			return
		}
	}

	_, err := activity.Record(s.db, project, models.ActivityUpdate, user, activity.RecordOpts{
		Action: models.ActionPost,
		Text:   body.Text,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.announce(c, user.Username+" posted to "+project.Name, body.Text, project)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Posted."})
}

// handleBoost records an admin commendation worth a fixed score bonus.
func (s *Server) handleBoost(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	user := currentUser(c)
	if !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators may boost"})
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	c.ShouldBindJSON(&body) // the note is optional

	_, err := activity.Record(s.db, project, models.ActivityBoost, user, activity.RecordOpts{
		Text: body.Text,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.announce(c, project.Name+" got a boost", body.Text, project)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Boosted."})
}
