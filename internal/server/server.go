// Package server exposes the HTTP API: the machine push endpoint, the
// autofill preview, project actions and the read-only event feeds.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hackboard/hackboard/internal/fetch"
	"github.com/hackboard/hackboard/internal/notify"
	"github.com/hackboard/hackboard/internal/progress"
	"github.com/hackboard/hackboard/internal/syncer"
)

// Opts holds configuration for the API server.
type Opts struct {
	DB       *gorm.DB
	Engine   *progress.Engine
	Fetcher  *fetch.Fetcher
	Syncer   *syncer.Coordinator
	Notifier notify.Notifier
	Secret   string // shared secret for the push endpoint
	Port     int
	Out      io.Writer
}

// Server wires the API handlers to their collaborators.
type Server struct {
	db       *gorm.DB
	engine   *progress.Engine
	fetcher  *fetch.Fetcher
	syncer   *syncer.Coordinator
	notifier notify.Notifier
	secret   string
}

// New builds a Server. All collaborators are required except the notifier,
// which defaults to announcing nowhere.
func New(opts Opts) (*Server, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("server: progress engine is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("server: fetcher is required")
	}
	if opts.Syncer == nil {
		return nil, fmt.Errorf("server: syncer is required")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &Server{
		db:       opts.DB,
		engine:   opts.Engine,
		fetcher:  opts.Fetcher,
		syncer:   opts.Syncer,
		notifier: notifier,
		secret:   opts.Secret,
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	return router
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	if opts.Port <= 0 {
		opts.Port = 5000
	}
	s, err := New(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: s.Router(),
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Hackboard API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
