package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName tags every log line emitted by this binary.
const ServiceName = "sup-ledger"

// New returns the process logger: JSON on stdout, or a console writer when
// pretty is set. Unknown levels fall back to info.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return build(w, level).Caller().Logger()
}

// NewWithWriter is New without caller info, writing JSON to w. Tests use it
// to capture output.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(w, level).Logger()
}

// Component derives a child logger for one subsystem (processor, sweeper, http).
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func build(w io.Writer, level string) zerolog.Context {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("service", ServiceName)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
