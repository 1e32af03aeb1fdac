package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tasksync/internal/logging"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		want  zerolog.Level
	}{
		{"", false, zerolog.WarnLevel},
		{"info", false, zerolog.InfoLevel},
		{"ERROR", false, zerolog.ErrorLevel},
		{"nonsense", false, zerolog.WarnLevel},
		{"error", true, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		logger := logging.New(&bytes.Buffer{}, tt.level, tt.debug)
		require.Equal(t, tt.want, logger.GetLevel(), "level=%q debug=%v", tt.level, tt.debug)
	}
}

func TestNew_WritesConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "", true)
	logger.Debug().Str("id", "7").Msg("change confirmed")

	line := buf.String()
	require.True(t, strings.Contains(line, "change confirmed"), line)
	require.True(t, strings.Contains(line, "id=7"), line)
}
