// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// New returns a logger writing to w at level (debug, info, warn, error).
// format may be "json" or "text".
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to slog; unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JobStart logs the beginning of a long-running job.
func JobStart(logger *slog.Logger, kind, id string, attrs ...any) {
	logger.Info("job started", append([]any{"type", kind, "id", id}, attrs...)...)
}

// JobDone logs a finished job with its wall time.
func JobDone(logger *slog.Logger, kind, id string, took time.Duration, attrs ...any) {
	logger.Info("job completed", append([]any{"type", kind, "id", id, "duration_ms", took.Milliseconds()}, attrs...)...)
}

// JobFailed logs a failed job.
func JobFailed(logger *slog.Logger, kind, id string, took time.Duration, err error) {
	logger.Error("job failed", "type", kind, "id", id, "duration_ms", took.Milliseconds(), "error", err)
}
