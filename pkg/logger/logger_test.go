package logger

import (
	"log/slog"
	"testing"
)

func TestMockLogger(t *testing.T) {
	mock := NewMockLogger()

	mock.Info("Test message", "key", "value")
	mock.Debug("Debug message")
	mock.Warn("Warning message")
	mock.Error("Error message", "error", "test error")

	if got := len(mock.Entries()); got != 4 {
		t.Errorf("Expected 4 entries, got %d", got)
	}

	if !mock.HasMessage("INFO", "Test message") {
		t.Error("Expected to find INFO message")
	}

	if !mock.HasMessageContaining("ERROR", "Error") {
		t.Error("Expected to find ERROR message containing 'Error'")
	}

	// Child loggers share the parent's sink and prepend their attributes.
	child := mock.With("analysis", "test-analysis")
	child.Info("Context message")

	entries := mock.Entries()
	last := entries[len(entries)-1]
	if last.Msg != "Context message" {
		t.Errorf("Expected context message, got: %s", last.Msg)
	}

	found := false
	for i := 0; i+1 < len(last.Args); i += 2 {
		if last.Args[i] == "analysis" && last.Args[i+1] == "test-analysis" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected to find analysis context in args")
	}

	mock.Clear()
	if len(mock.Entries()) != 0 {
		t.Error("Expected entries to be cleared")
	}
}

func TestLoggerInterface(_ *testing.T) {
	var _ Logger = &SlogLogger{}
	var _ Logger = &MockLogger{}

	testLogger := func(l Logger) {
		l.Info("test")
		l.Debug("debug")
		l.Warn("warn")
		l.Error("error")
		l.With("key", "value").Info("with context")
		l.WithGroup("group").Info("grouped")
	}

	testLogger(NewMockLogger())
	testLogger(SetupLogger("debug", "text"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	mock := NewMockLogger()
	SetGlobalLogger(mock)

	Info("global info", "k", "v")
	Warn("global warn")

	if !mock.HasMessage("INFO", "global info") {
		t.Error("Expected global Info to reach the installed logger")
	}
	if !mock.HasMessage("WARN", "global warn") {
		t.Error("Expected global Warn to reach the installed logger")
	}
}
