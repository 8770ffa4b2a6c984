package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord announces events to one Discord channel.
type Discord struct {
	session discordSession
	channel string
}

// NewDiscord builds a Discord notifier from a bot token and channel ID.
func NewDiscord(token, channel string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: session: %w", err)
	}
	return &Discord{session: session, channel: channel}, nil
}

// Announce posts the event as an embed.
func (d *Discord) Announce(ctx context.Context, ev Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		URL:         ev.URL,
		Color:       colorValue(ev.Color),
	}
	if _, err := d.session.ChannelMessageSendEmbed(d.channel, embed); err != nil {
		return fmt.Errorf("discord: post to %s: %w", d.channel, err)
	}
	return nil
}

// colorValue converts a "#rrggbb" hint into Discord's integer color.
func colorValue(hex string) int {
	hex = strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
