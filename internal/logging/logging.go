// Package logging configures the process-wide zerolog logger, matching
// the idiom used across the pack (agentoven-agentoven's package-level
// zerolog.Logger, structured fields instead of formatted strings).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console-friendly zerolog.Logger. Secrets (the recipe
// service's bearer token) must never be passed to any field on this
// logger — callers are responsible for redacting before logging a
// request.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}
