// Package logging builds the slog loggers used across the tool.
//
// CLI invocations get a terse text handler on stderr; the API server runs
// with JSON records so log collectors can parse them.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Mode selects the handler style.
type Mode int

const (
	ModeCLI Mode = iota
	ModeJSON
)

// New constructs a logger targeting w. A nil level defaults to Info.
func New(mode Mode, w io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if mode == ModeJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Ensure returns logger, or the process default if nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// ParseLevel maps a --log-level flag value onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (debug, info, warning, error)", s)
	}
}
