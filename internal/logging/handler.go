// Package logging builds the process-wide slog handler.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Output formats accepted by New.
const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

// ParseLevel maps debug/info/warn/error (case-insensitive) to a slog level.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a handler writing to w. "text" produces colorized lines for local
// development, "json" one JSON object per line. "auto" (or empty) picks text when w is
// a terminal and JSON otherwise.
func New(format string, level slog.Level, w io.Writer) (slog.Handler, error) {
	tty := isTerminal(w)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatAuto:
		if tty {
			return newTextHandler(w, level, true), nil
		}
		return newJSONHandler(w, level), nil
	case FormatJSON:
		return newJSONHandler(w, level), nil
	case FormatText:
		return newTextHandler(w, level, tty), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func newTextHandler(w io.Writer, level slog.Level, color bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
