package mind

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/server-chatter/internal/logging"
	"github.com/keshon/server-chatter/internal/persona"
)

// Result is the terminal state of HandleMessage.
type Result int

const (
	ResultIgnored   Result = iota // decider chose silence
	ResultDropped                 // a flow for the same key was already running
	ResultResponded               // reply composed; delivery may still have failed
	ResultFailed                  // flow panicked, apology sent
)

func (r Result) String() string {
	switch r {
	case ResultIgnored:
		return "ignored"
	case ResultDropped:
		return "dropped"
	case ResultResponded:
		return "responded"
	case ResultFailed:
		return "failed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Engine is the per-message entry point: decide, guard, compose.
type Engine struct {
	store    *Store
	guard    *Guard
	decider  *Decider
	composer *Composer
	platform Platform
	book     *persona.Book
	log      zerolog.Logger
}

// EngineOptions wires an Engine. Store, Decider, Composer and Platform are required.
type EngineOptions struct {
	Store    *Store
	Guard    *Guard
	Decider  *Decider
	Composer *Composer
	Platform Platform
	Book     *persona.Book
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.Guard == nil {
		opts.Guard = NewGuard()
	}
	if opts.Book == nil {
		opts.Book = persona.Default()
	}
	return &Engine{
		store:    opts.Store,
		guard:    opts.Guard,
		decider:  opts.Decider,
		composer: opts.Composer,
		platform: opts.Platform,
		book:     opts.Book,
		log:      logging.Component("mind"),
	}
}

// Store exposes the session store for collaborators such as the sweeper.
func (e *Engine) Store() *Store { return e.store }

// HandleMessage runs the full flow for one inbound message. Events are
// independent; callers may invoke it concurrently.
func (e *Engine) HandleMessage(ctx context.Context, ev MessageEvent) Result {
	window := e.decider.Config().BotActivityWindow
	botActive := e.store.Channels().RecentBotActivity(ev.ChannelID, window)

	d := e.decider.ShouldRespond(ev, botActive)
	if !d.Respond {
		if d.Reason == ReasonSilent {
			e.log.Trace().
				Str("channel", ev.ChannelID).
				Float64("chance", d.Chance.Total).
				Float64("draw", d.Draw).
				Msg("staying quiet")
		}
		return ResultIgnored
	}

	key := ev.Key()
	if !e.guard.TryAcquire(key) {
		e.log.Debug().
			Str("user", ev.AuthorID).
			Str("channel", ev.ChannelID).
			Msg("already responding, dropping message")
		return ResultDropped
	}
	defer e.guard.Release(key)

	return e.respond(ctx, ev, d)
}

func (e *Engine) respond(ctx context.Context, ev MessageEvent, d Decision) (res Result) {
	logger := e.log.With().
		Str("flow", uuid.NewString()).
		Str("user", ev.AuthorID).
		Str("channel", ev.ChannelID).
		Str("where", ev.Where()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("response flow crashed")
			if err := e.platform.Send(ctx, ev.ChannelID, e.book.Apology); err != nil {
				logger.Warn().Err(err).Msg("apology not delivered")
			}
			res = ResultFailed
		}
	}()

	logger.Debug().Str("reason", string(d.Reason)).Float64("chance", d.Chance.Total).Msg("responding")

	out := e.composer.Respond(ctx, ev, logger)

	logger.Info().
		Str("reason", string(d.Reason)).
		Str("fallback", string(out.Failure)).
		Strs("features", out.Features).
		Bool("threaded", out.Threaded).
		Bool("delivered", out.Delivered).
		Msg("replied")
	return ResultResponded
}
