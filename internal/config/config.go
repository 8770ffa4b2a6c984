// Package config provides YAML-based configuration loading for Hackboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Hackboard configuration, loaded from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Sync     SyncConfig     `yaml:"sync"`
	Notify   NotifyConfig   `yaml:"notify"`
	Stages   []StageConfig  `yaml:"stages"`
}

// ServerConfig holds HTTP server settings. Secret authenticates the
// machine-to-machine push endpoint.
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

// DatabaseConfig selects and configures the durable store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	DSN    string `yaml:"dsn"`
}

// FetchConfig tunes the external metadata fetcher.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	GitHubToken    string `yaml:"github_token"`
}

// SyncConfig controls the scheduled re-sync of auto-update projects.
// Schedule is a standard 5-field cron expression; empty disables it.
type SyncConfig struct {
	Schedule string `yaml:"schedule"`
}

// NotifyConfig holds chat announcement targets. A target with an empty
// token is disabled.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack notifier.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// StageConfig defines one entry of the ordered project stage table.
type StageConfig struct {
	ID          int               `yaml:"id"`
	Phase       string            `yaml:"phase"`
	Description string            `yaml:"description"`
	Conditions  []ConditionConfig `yaml:"conditions"`
}

// ConditionConfig is a single stage-completion predicate over a project
// field: a minimum length, a maximum length, or an absolute-URL check.
type ConditionConfig struct {
	Field string `yaml:"field"`
	Min   int    `yaml:"min"`
	Max   int    `yaml:"max"`
	URL   bool   `yaml:"url"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "hackboard.db"
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 10
	}
	if len(c.Stages) == 0 {
		c.Stages = DefaultStages()
	}
}

// applyEnv overlays secrets from the environment so they can stay out of
// the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("HACKBOARD_SECRET"); v != "" {
		c.Server.Secret = v
	}
	if v := os.Getenv("HACKBOARD_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Fetch.GitHubToken = v
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required for mysql")
	}
	last := -1
	for i, s := range c.Stages {
		if s.ID < 0 {
			errs = append(errs, fmt.Sprintf("stages[%d].id must not be negative", i))
		}
		if s.ID <= last {
			errs = append(errs, fmt.Sprintf("stages[%d].id must increase (got %d after %d)", i, s.ID, last))
		}
		last = s.ID
		if s.Phase == "" {
			errs = append(errs, fmt.Sprintf("stages[%d].phase is required", i))
		}
		for j, cond := range s.Conditions {
			if cond.Field == "" {
				errs = append(errs, fmt.Sprintf("stages[%d].conditions[%d].field is required", i, j))
			}
			if cond.Min == 0 && cond.Max == 0 && !cond.URL {
				errs = append(errs, fmt.Sprintf("stages[%d].conditions[%d] needs min, max or url", i, j))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultStages is the stage table used when a deployment does not define
// its own. IDs are spaced out so organizers can splice in custom stages.
func DefaultStages() []StageConfig {
	return []StageConfig{
		{
			ID: 0, Phase: "New",
			Description: "The challenge is approved and a team can form.",
		},
		{
			ID: 5, Phase: "Researched",
			Description: "Scope and prior art are documented.",
			Conditions: []ConditionConfig{
				{Field: "summary", Min: 3, Max: 140},
			},
		},
		{
			ID: 10, Phase: "Sketched",
			Description: "A design sketch or mockup is attached.",
			Conditions: []ConditionConfig{
				{Field: "image_url", URL: true},
			},
		},
		{
			ID: 20, Phase: "Prototyped",
			Description: "Working code is available in a repository.",
			Conditions: []ConditionConfig{
				{Field: "source_url", URL: true},
				{Field: "longtext", Min: 100},
			},
		},
		{
			ID: 30, Phase: "Launched",
			Description: "A demo is reachable online.",
			Conditions: []ConditionConfig{
				{Field: "webpage_url", URL: true},
			},
		},
		{
			ID: 40, Phase: "Promoted",
			Description: "The project is documented and promoted.",
			Conditions: []ConditionConfig{
				{Field: "longtext", Min: 500},
			},
		},
	}
}
