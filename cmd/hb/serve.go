package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackboard/hackboard/internal/config"
	"github.com/hackboard/hackboard/internal/db"
	"github.com/hackboard/hackboard/internal/fetch"
	"github.com/hackboard/hackboard/internal/notify"
	"github.com/hackboard/hackboard/internal/progress"
	"github.com/hackboard/hackboard/internal/server"
	"github.com/hackboard/hackboard/internal/syncer"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Hackboard API server",
		Long:  "Starts the HTTP API, migrates the database and, when configured, the scheduled metadata re-sync.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hackboard.yaml", "path to Hackboard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

// loadConfig reads the config file, falling back to built-in defaults when
// the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if _, err := db.EnsureSystemUser(gormDB); err != nil {
		return err
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:     time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		GitHubToken: cfg.Fetch.GitHubToken,
	})
	coordinator := syncer.New(gormDB, fetcher)
	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.Schedule != "" {
		if err := coordinator.StartSchedule(ctx, cfg.Sync.Schedule); err != nil {
			return err
		}
		fmt.Fprintf(out, "Scheduled re-sync: %s\n", cfg.Sync.Schedule)
	}

	return server.Start(ctx, server.Opts{
		DB:       gormDB,
		Engine:   progress.New(progress.FromConfig(cfg.Stages)),
		Fetcher:  fetcher,
		Syncer:   coordinator,
		Notifier: notifier,
		Secret:   cfg.Server.Secret,
		Port:     cfg.Server.Port,
		Out:      out,
	})
}
