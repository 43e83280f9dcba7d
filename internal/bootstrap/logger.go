// Package bootstrap builds the process-wide pieces shared by the server and
// pixctl: the logger and the configured PSP provider.
package bootstrap

import (
	"io"
	"os"
	"time"

	"pixcharge/config"

	"github.com/rs/zerolog"
)

// NewLogger writes JSON in production and a console format elsewhere.
func NewLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "pixcharge").Logger()
}
