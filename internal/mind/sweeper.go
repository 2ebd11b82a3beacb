package mind

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-chatter/internal/logging"
)

// RunEvery calls fn on every tick of interval until ctx ends. The first call
// happens one interval after start.
func RunEvery(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}

// Sweeper periodically drops sessions idle longer than the timeout.
type Sweeper struct {
	store    *Store
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewSweeper(store *Store, interval, timeout time.Duration) *Sweeper {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		log:      logging.Component("sweeper"),
	}
}

// Sweep removes expired sessions once and returns how many went.
func (s *Sweeper) Sweep() int {
	removed := s.store.SweepExpired(s.now(), s.timeout)
	if removed > 0 {
		s.log.Info().Int("removed", removed).Int("remaining", s.store.Len()).Msg("expired sessions removed")
	}
	return removed
}

// Run sweeps on every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Debug().Dur("interval", s.interval).Dur("timeout", s.timeout).Msg("sweeper started")
	RunEvery(ctx, s.interval, func(time.Time) { s.Sweep() })
	s.log.Debug().Msg("sweeper stopped")
	return nil
}
