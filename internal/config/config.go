package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DiscordToken      string        `env:"DISCORD_TOKEN"`
	HuggingFaceToken  string        `env:"HUGGINGFACE_TOKEN"`
	HuggingFaceAPIURL string        `env:"HUGGINGFACE_API_URL" envDefault:"https://api-inference.huggingface.co/models/microsoft/DialoGPT-large"`
	WebhookURL        string        `env:"WEBHOOK_URL"`
	ResponseChance    float64       `env:"RANDOM_RESPONSE_CHANCE" envDefault:"0.12"`
	HistorySize       int           `env:"MAX_CONVERSATION_HISTORY" envDefault:"8"`
	ChannelLogSize    int           `env:"CHANNEL_CONTEXT_SIZE" envDefault:"15"`
	SessionTimeout    time.Duration `env:"CONVERSATION_TIMEOUT" envDefault:"600s"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	StatusInterval    time.Duration `env:"STATUS_INTERVAL" envDefault:"30m"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"10s"`
	GenerationRPS     float64       `env:"GENERATION_RPS" envDefault:"2"`
	PersonaFile       string        `env:"PERSONA_FILE"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"console"`
}

// ErrMissingToken is returned by Load when DISCORD_TOKEN is unset.
var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

// LoadDotEnv reads .env into the environment when the file exists.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
}

// Parse reads the environment into a Config without requiring a token.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// Load loads .env, parses the environment and validates the result.
func Load() (*Config, error) {
	LoadDotEnv()
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if cfg.DiscordToken == "" {
		return nil, ErrMissingToken
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges of the tunables.
func (c *Config) Validate() error {
	var errs []error
	if c.ResponseChance < 0 || c.ResponseChance > 1 {
		errs = append(errs, fmt.Errorf("RANDOM_RESPONSE_CHANCE must be in [0,1], got %v", c.ResponseChance))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONVERSATION_HISTORY must be positive, got %d", c.HistorySize))
	}
	if c.ChannelLogSize <= 0 {
		errs = append(errs, fmt.Errorf("CHANNEL_CONTEXT_SIZE must be positive, got %d", c.ChannelLogSize))
	}
	for name, d := range map[string]time.Duration{
		"CONVERSATION_TIMEOUT": c.SessionTimeout,
		"CLEANUP_INTERVAL":     c.CleanupInterval,
		"STATUS_INTERVAL":      c.StatusInterval,
		"GENERATION_TIMEOUT":   c.GenerationTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.GenerationRPS <= 0 {
		errs = append(errs, fmt.Errorf("GENERATION_RPS must be positive, got %v", c.GenerationRPS))
	}
	return errors.Join(errs...)
}
