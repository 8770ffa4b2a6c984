package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack announces events to one Slack channel.
type Slack struct {
	client  slackClient
	channel string
}

// NewSlack builds a Slack notifier from a bot token and channel ID.
func NewSlack(token, channel string) *Slack {
	return &Slack{client: slackapi.New(token), channel: channel}
}

// Announce posts the event as an attachment-styled message.
func (s *Slack) Announce(ctx context.Context, ev Event) error {
	attachment := slackapi.Attachment{
		Color:     ev.Color,
		Title:     ev.Title,
		TitleLink: ev.URL,
		Text:      ev.Body,
	}
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", s.channel, err)
	}
	return nil
}
