package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a console zerolog.Logger writing to stderr so that
// stdout stays reserved for report output. Unknown levels fall back to warn.
func NewLogger(level string, debug bool) zerolog.Logger {
	return newLogger(os.Stderr, level, debug)
}

func newLogger(w io.Writer, level string, debug bool) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	logger := zerolog.New(out).With().Timestamp().Logger()

	if debug {
		return logger.Level(zerolog.DebugLevel)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return logger.Level(lvl)
}
