package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hackboard/hackboard/internal/activity"
	"github.com/hackboard/hackboard/internal/models"
)

// registerRoutes sets up all API routes on the gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/project/push.json", s.requireSecret(), s.handlePush)
	api.GET("/autofill", s.handleAutofill)
	api.GET("/project/:id/info.json", s.handleProjectInfo)
	api.GET("/event/:id/projects.json", s.handleEventProjects)
	api.GET("/event/:id/activity.json", s.handleEventActivity)

	actions := router.Group("/project/:id", s.requireUser())
	actions.POST("/render", s.handleResync)
	actions.POST("/approve", s.handleApprove)
	actions.POST("/promote", s.handlePromote)
	actions.POST("/star", s.handleStar)
	actions.POST("/unstar", s.handleUnstar)
	actions.POST("/post", s.handlePost)
	actions.POST("/boost", s.handleBoost)
}

// loadProject resolves the :id parameter to a project row or writes the
// error response itself and returns nil.
func (s *Server) loadProject(c *gin.Context) *models.Project {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return nil
	}
	var project models.Project
	if err := s.db.First(&project, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "project lookup failed"})
		}
		return nil
	}
	return &project
}

// handleAutofill previews what a sync of the given URL would fetch. It
// persists nothing; an unrecognized or failing URL yields empty fields.
func (s *Server) handleAutofill(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter is required"})
		return
	}
	data := s.fetcher.Fetch(c.Request.Context(), raw)
	c.JSON(http.StatusOK, data)
}

// handleProjectInfo returns the public project representation. Hidden
// projects are not served.
func (s *Server) handleProjectInfo(c *gin.Context) {
	project := s.loadProject(c)
	if project == nil {
		return
	}
	if project.IsHidden {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	view, err := s.buildProjectView(s.db, project)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assemble project"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": view})
}

// handleEventProjects lists an event's visible projects, best score first.
func (s *Server) handleEventProjects(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var projects []models.Project
	err = s.db.Where("event_id = ? AND is_hidden = ?", uint(eventID), false).
		Order("score DESC, id ASC").Find(&projects).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "project listing failed"})
		return
	}

	views := make([]*projectView, 0, len(projects))
	for i := range projects {
		view, err := s.buildProjectView(s.db, &projects[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not assemble project"})
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"projects": views})
}

// handleEventActivity returns the event's dribs feed, newest first.
func (s *Server) handleEventActivity(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	dribs, err := activity.Dribs(s.db, activity.FeedFilters{EventID: uint(eventID), Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activity feed failed"})
		return
	}

	views := make([]activityView, 0, len(dribs))
	for i := range dribs {
		views = append(views, buildActivityView(&dribs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"activities": views})
}
