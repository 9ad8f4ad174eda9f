package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is a single captured log record.
type Entry struct {
	Level string
	Msg   string
	Args  []any
}

// mockSink collects entries; shared between a MockLogger and its With children.
type mockSink struct {
	mu      sync.Mutex
	entries []Entry
}

// MockLogger captures log output for assertions in tests.
type MockLogger struct {
	sink  *mockSink
	attrs []any
}

// NewMockLogger creates a mock logger with an empty sink.
func NewMockLogger() *MockLogger {
	return &MockLogger{sink: &mockSink{}}
}

func (m *MockLogger) record(level, msg string, args []any) {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	merged := make([]any, 0, len(m.attrs)+len(args))
	merged = append(merged, m.attrs...)
	merged = append(merged, args...)
	m.sink.entries = append(m.sink.entries, Entry{Level: level, Msg: msg, Args: merged})
}

// Debug records a debug message.
func (m *MockLogger) Debug(msg string, args ...any) { m.record("DEBUG", msg, args) }

// Info records an info message.
func (m *MockLogger) Info(msg string, args ...any) { m.record("INFO", msg, args) }

// Warn records a warning message.
func (m *MockLogger) Warn(msg string, args ...any) { m.record("WARN", msg, args) }

// Error records an error message.
func (m *MockLogger) Error(msg string, args ...any) { m.record("ERROR", msg, args) }

// With returns a child logger writing to the same sink with extra attributes.
func (m *MockLogger) With(args ...any) Logger {
	attrs := make([]any, 0, len(m.attrs)+len(args))
	attrs = append(attrs, m.attrs...)
	attrs = append(attrs, args...)
	return &MockLogger{sink: m.sink, attrs: attrs}
}

// WithGroup returns a child logger tagged with a group attribute.
func (m *MockLogger) WithGroup(name string) Logger {
	return m.With("group", name)
}

// Entries returns a copy of all captured entries.
func (m *MockLogger) Entries() []Entry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	out := make([]Entry, len(m.sink.entries))
	copy(out, m.sink.entries)
	return out
}

// HasMessage reports whether an entry with the exact level and message exists.
func (m *MockLogger) HasMessage(level, msg string) bool {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	for _, e := range m.sink.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}

// HasMessageContaining reports whether an entry at level contains the substring.
func (m *MockLogger) HasMessageContaining(level, substring string) bool {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	for _, e := range m.sink.entries {
		if e.Level == level && strings.Contains(e.Msg, substring) {
			return true
		}
	}
	return false
}

// Clear discards all captured entries.
func (m *MockLogger) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = nil
}

// String renders captured entries one per line.
func (m *MockLogger) String() string {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	var b strings.Builder
	for _, e := range m.sink.entries {
		fmt.Fprintf(&b, "[%s] %s %v\n", e.Level, e.Msg, e.Args)
	}
	return b.String()
}
