// Package logging configures the process-wide zerolog logger and hands out
// per-component child loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. format "console" (or empty) gives
// human-readable output; anything else writes JSON lines. Unknown levels fall
// back to info.
func Setup(level, format string) zerolog.Logger {
	var w io.Writer = os.Stderr
	if IsConsole(format) {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// IsConsole reports whether format selects the console writer.
func IsConsole(format string) bool {
	format = strings.TrimSpace(format)
	return format == "" || strings.EqualFold(format, "console")
}

// Component returns a child of the global logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
