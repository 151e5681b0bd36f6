package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to w. appEnv "dev" selects the human-readable
// console writer; anything else writes JSON. Unknown levels fall back to info.
func New(w io.Writer, appEnv, level string) zerolog.Logger {
	if strings.EqualFold(appEnv, "dev") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup replaces the global logger.
func Setup(appEnv, level string) {
	log.Logger = New(os.Stdout, appEnv, level)
}

// Component returns the global logger tagged with a component field.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
