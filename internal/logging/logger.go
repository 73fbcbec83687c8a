// Package logging builds the zerolog loggers used by the CLI and the API client.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Common field names for consistent log lines.
const (
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldRequestID = "request_id"
	FieldAttempt   = "attempt"
	FieldState     = "state"
	FieldProfile   = "profile"
	FieldUsername  = "username"
	FieldServer    = "server"
)

// New creates a logger writing to w at the given level.
// format can be "json" or "text" (default is text, which suits a terminal).
func New(level zerolog.Level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// ParseLevel converts a string log level to a zerolog.Level.
// Valid values: "debug", "info", "warn", "error", "off".
// Returns zerolog.InfoLevel for invalid values.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
