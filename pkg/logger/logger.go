package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger writing to stdout with the specified level
// and format
func New(level, format string) *Logger {
	return NewWriter(os.Stdout, level, format)
}

// NewWriter creates a new logger writing to w. The stdio tool surface
// uses this with os.Stderr, since stdout carries the protocol stream.
func NewWriter(w io.Writer, level, format string) *Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *Logger {
	return NewWriter(io.Discard, "error", "text")
}

// With creates a child logger with additional fields
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
