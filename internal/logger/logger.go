// Package logger wraps slog with a JSON handler whose level can change at runtime.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a structured JSON logger with a dynamic level.
type Logger struct {
	*slog.Logger
	levelVar *slog.LevelVar
}

// New returns an INFO logger writing to stderr.
func New() *Logger {
	return NewWithLevel("INFO", os.Stderr)
}

// NewWithLevel returns a logger writing JSON lines to w at the given level.
func NewWithLevel(level string, w io.Writer) *Logger {
	levelVar := &slog.LevelVar{}
	levelVar.Set(parseLevel(level))

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelVar,
	})

	return &Logger{
		Logger:   slog.New(handler),
		levelVar: levelVar,
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewWithLevel("ERROR", io.Discard)
}

// SetLevel dynamically changes the log level
func (l *Logger) SetLevel(level string) {
	l.levelVar.Set(parseLevel(level))
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() slog.Level {
	return l.levelVar.Level()
}

// With returns a child logger carrying the given attributes. The child shares
// the parent's level.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:   l.Logger.With(args...),
		levelVar: l.levelVar,
	}
}

// parseLevel converts string to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
