package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/server-chatter/internal/mind"
	"github.com/keshon/server-chatter/internal/persona"
)

type presenceSetter interface {
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

func watching(name string) discordgo.UpdateStatusData {
	return discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{{
			Name: name,
			Type: discordgo.ActivityTypeWatching,
		}},
		Status: string(discordgo.StatusOnline),
	}
}

// setWatching shows a random "watching" status picked from statuses.
func setWatching(s presenceSetter, r persona.Picker, statuses []string) (string, error) {
	name := persona.Pick(r, statuses)
	if name == "" {
		return "", nil
	}
	if err := s.UpdateStatusComplex(watching(name)); err != nil {
		return "", fmt.Errorf("update status: %w", err)
	}
	return name, nil
}

// StatusRotator swaps the presence text on a fixed interval.
type StatusRotator struct {
	s        presenceSetter
	rand     persona.Picker
	statuses []string
	interval time.Duration
	log      zerolog.Logger
}

func newStatusRotator(s presenceSetter, r persona.Picker, statuses []string, interval time.Duration, log zerolog.Logger) *StatusRotator {
	return &StatusRotator{s: s, rand: r, statuses: statuses, interval: interval, log: log}
}

// Rotate sets one new status.
func (r *StatusRotator) Rotate() {
	name, err := setWatching(r.s, r.rand, r.statuses)
	if err != nil {
		r.log.Warn().Err(err).Msg("status rotation failed")
		return
	}
	r.log.Debug().Str("status", name).Msg("status rotated")
}

// Run rotates until ctx ends.
func (r *StatusRotator) Run(ctx context.Context) {
	mind.RunEvery(ctx, r.interval, func(time.Time) { r.Rotate() })
}
