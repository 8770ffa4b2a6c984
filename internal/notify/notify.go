// Package notify forwards project activity to chat platforms.
//
// Announcements are best-effort: a failed delivery is logged and never
// affects the request that produced the activity.
package notify

import (
	"context"
	"log"

	"github.com/hackboard/hackboard/internal/config"
)

// Event is one announcement: a drib, a boost, a stage change.
type Event struct {
	Title string // headline, e.g. "widget reached Prototyped"
	Body  string // detail text
	URL   string // link back to the project
	Color string // sidebar color hint, e.g. "#36a64f"
}

// Notifier is the interface platform adapters implement.
type Notifier interface {
	Announce(ctx context.Context, ev Event) error
}

// Multi fans an announcement out to several platforms.
type Multi []Notifier

// Announce delivers to every target; failures are logged and swallowed.
func (m Multi) Announce(ctx context.Context, ev Event) error {
	for _, n := range m {
		if err := n.Announce(ctx, ev); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	return nil
}

// FromConfig builds the notifier set for the configured targets. With no
// targets configured the result is an empty Multi, which announces to
// nobody.
func FromConfig(cfg config.NotifyConfig) (Multi, error) {
	var targets Multi
	if cfg.Slack.Token != "" {
		targets = append(targets, NewSlack(cfg.Slack.Token, cfg.Slack.Channel))
	}
	if cfg.Discord.Token != "" {
		d, err := NewDiscord(cfg.Discord.Token, cfg.Discord.Channel)
		if err != nil {
			return nil, err
		}
		targets = append(targets, d)
	}
	return targets, nil
}
