package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/server-chatter/internal/ai"
	"github.com/keshon/server-chatter/internal/config"
	"github.com/keshon/server-chatter/internal/discord"
	"github.com/keshon/server-chatter/internal/logging"
	"github.com/keshon/server-chatter/internal/mind"
	"github.com/keshon/server-chatter/internal/persona"
	"github.com/keshon/server-chatter/internal/webhook"
	v "github.com/keshon/server-chatter/internal/version"
)

func main() {
	logging.Setup("info", "console")
	if err := run(); err != nil {
		log.Error().Err(err).Msg("bot stopped")
		os.Exit(1)
	}
	log.Info().Msg("discord bot exited cleanly")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("version", v.AppVersion).Msgf("starting %s bot", v.AppName)

	if cfg.HuggingFaceToken == "" {
		log.Warn().Msg("HUGGINGFACE_TOKEN is not set, generation requests will be unauthenticated")
	}

	book := persona.Default()
	if cfg.PersonaFile != "" {
		if book, err = persona.Load(cfg.PersonaFile); err != nil {
			return err
		}
	}

	rng := mind.DefaultRand()
	bot, err := discord.New(cfg.DiscordToken, discord.Options{
		Book:           book,
		Rand:           rng,
		Notifier:       webhook.New(cfg.WebhookURL, nil),
		StatusInterval: cfg.StatusInterval,
	})
	if err != nil {
		return err
	}

	store := mind.NewStore(mind.StoreOptions{
		HistorySize:    cfg.HistorySize,
		ChannelLogSize: cfg.ChannelLogSize,
		Rand:           rng,
	})
	decisionCfg := mind.DefaultDecisionConfig()
	decisionCfg.BaseChance = cfg.ResponseChance

	gen := ai.NewClient(ai.Options{
		URL:     cfg.HuggingFaceAPIURL,
		Token:   cfg.HuggingFaceToken,
		Timeout: cfg.GenerationTimeout,
		RPS:     cfg.GenerationRPS,
	})
	engine := mind.NewEngine(mind.EngineOptions{
		Store:    store,
		Decider:  mind.NewDecider(decisionCfg, rng, nil),
		Composer: mind.NewComposer(store, gen, bot.Platform(), book, rng, mind.DefaultCosmeticConfig()),
		Platform: bot.Platform(),
		Book:     book,
	})
	sweeper := mind.NewSweeper(store, cfg.CleanupInterval, cfg.SessionTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx, engine)
	})
	g.Go(func() error {
		select {
		case <-bot.Ready():
		case <-ctx.Done():
			return nil
		}
		return sweeper.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
