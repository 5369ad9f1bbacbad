// Package logging builds the slog loggers used across cc-launcher.
//
// Components take a *slog.Logger and tag their records with a subsystem
// attribute via For. The CLI writes to the log file next to the config
// document, or to stderr when --verbose is set.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Subsystem names used in the "subsystem" attribute.
const (
	SubsystemStore      = "store"
	SubsystemProfiles   = "profiles"
	SubsystemServers    = "servers"
	SubsystemValidation = "validation"
	SubsystemLaunch     = "launch"
	SubsystemCLI        = "cli"
)

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a text logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// For tags logger with a subsystem, substituting Discard for nil.
func For(logger *slog.Logger, subsystem string) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	return logger.With("subsystem", subsystem)
}

// OpenFile opens path for appending, creating its directory if needed.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}
