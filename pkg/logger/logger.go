// Package logger provides structured logging for AutoGT.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is the logging interface used throughout AutoGT. It mirrors the
// slog surface so implementations can wrap *slog.Logger directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

// SlogLogger wraps *slog.Logger to implement Logger.
type SlogLogger struct {
	inner *slog.Logger
}

// NewSlogLogger wraps an existing slog logger.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{inner: l}
}

// Debug logs a debug message.
func (s *SlogLogger) Debug(msg string, args ...any) { s.inner.Debug(msg, args...) }

// Info logs an info message.
func (s *SlogLogger) Info(msg string, args ...any) { s.inner.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogLogger) Warn(msg string, args ...any) { s.inner.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogLogger) Error(msg string, args ...any) { s.inner.Error(msg, args...) }

// With returns a new logger with additional attributes.
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{inner: s.inner.With(args...)}
}

// WithGroup returns a new logger with a named group.
func (s *SlogLogger) WithGroup(name string) Logger {
	return &SlogLogger{inner: s.inner.WithGroup(name)}
}

var (
	globalMu sync.RWMutex
	global   Logger = NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
)

// SetupLogger configures the global logger and returns it.
func SetupLogger(level, format string) Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	l := NewSlogLogger(slog.New(handler))
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// GetGlobalLogger returns the current global logger.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// ParseLevel maps a level name to a slog level, defaulting to info.
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

// Debug logs a debug message on the global logger.
func Debug(msg string, args ...any) {
	GetGlobalLogger().Debug(msg, args...)
}

// Info logs an info message on the global logger.
func Info(msg string, args ...any) {
	GetGlobalLogger().Info(msg, args...)
}

// Warn logs a warning message on the global logger.
func Warn(msg string, args ...any) {
	GetGlobalLogger().Warn(msg, args...)
}

// Error logs an error message on the global logger.
func Error(msg string, args ...any) {
	GetGlobalLogger().Error(msg, args...)
}
