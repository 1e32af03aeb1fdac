// Package logging builds the process logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger on w. debug forces the debug level;
// otherwise level is parsed, falling back to warn.
func New(w io.Writer, level string, debug bool) zerolog.Logger {
	lvl := zerolog.WarnLevel
	if debug {
		lvl = zerolog.DebugLevel
	} else if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && parsed != zerolog.NoLevel {
		lvl = parsed
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
