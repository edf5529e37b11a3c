package observe

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root zerolog logger for the process. Level accepts
// the zerolog level names ("debug", "info", "warn", "error"); unknown or
// empty levels fall back to info. Format is "json" or "console".
func NewLogger(service, level, format string) zerolog.Logger {
	return NewLoggerWithWriter(service, level, format, os.Stderr)
}

// NewLoggerWithWriter is NewLogger with a caller-supplied writer.
func NewLoggerWithWriter(service, level, format string, w io.Writer) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(w).Level(ParseLevel(level)).With().
		Timestamp().
		Str("service", service).
		Logger()
	return logger
}

// ParseLevel parses a zerolog level name, defaulting to info for unknown
// or empty input.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
