package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		debug bool
		want  zerolog.Level
	}{
		{"default", "", false, zerolog.WarnLevel},
		{"info", "info", false, zerolog.InfoLevel},
		{"unknown falls back", "chatty", false, zerolog.WarnLevel},
		{"debug flag wins", "error", true, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newLogger(&bytes.Buffer{}, tt.level, tt.debug)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewLoggerWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", false)

	logger.Info().Str("user", "alice").Msg("querying sreport")
	logger.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, "querying sreport")
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "hidden")
}
