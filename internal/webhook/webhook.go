// Package webhook posts guild join/leave notices to a Discord webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/server-chatter/internal/logging"
)

const (
	ColorJoin  = 0x00FF00
	ColorLeave = 0xFF0000

	defaultTimeout = 10 * time.Second
)

// Event says whether the bot joined or left a guild.
type Event int

const (
	Joined Event = iota
	Left
)

// GuildStats describes the guild an event concerns.
type GuildStats struct {
	Name        string
	ID          string
	MemberCount int
	OwnerID     string
	TotalGuilds int
}

// Notifier posts embeds to one webhook URL. A Notifier with an empty URL
// does nothing.
type Notifier struct {
	url  string
	http *http.Client
	now  func() time.Time
	log  zerolog.Logger
}

// New returns a Notifier for url. A nil client uses a 10s-timeout default.
func New(url string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Notifier{
		url:  url,
		http: client,
		now:  time.Now,
		log:  logging.Component("webhook"),
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool { return n != nil && n.url != "" }

// BuildEmbed renders the notice for ev.
func BuildEmbed(ev Event, g GuildStats, at time.Time) *discordgo.MessageEmbed {
	title, color := "🎉 Joined a new server", ColorJoin
	if ev == Left {
		title, color = "👋 Removed from a server", ColorLeave
	}
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Timestamp: at.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: orUnknown(g.Name), Inline: true},
			{Name: "Server ID", Value: orUnknown(g.ID), Inline: true},
			{Name: "Members", Value: strconv.Itoa(g.MemberCount), Inline: true},
			{Name: "Owner ID", Value: orUnknown(g.OwnerID), Inline: true},
			{Name: "Total servers", Value: strconv.Itoa(g.TotalGuilds), Inline: true},
		},
	}
}

// Notify posts the notice. Disabled notifiers return nil without a request.
func (n *Notifier) Notify(ctx context.Context, ev Event, g GuildStats) error {
	if !n.Enabled() {
		return nil
	}
	params := discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{BuildEmbed(ev, g, n.now())},
	}
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	n.log.Debug().Str("guild", g.ID).Int("event", int(ev)).Msg("webhook delivered")
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
