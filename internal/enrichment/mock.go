package enrichment

import (
	"context"
	"sync"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// MockDriver is a configurable Driver for tests. Unset function fields
// fall back to empty successful responses.
type MockDriver struct {
	DriverName  string
	Unavailable bool
	SuggestFunc func(ctx context.Context, asset *models.Asset, opts Options) ([]ThreatSuggestion, error)
	ReviewFunc  func(ctx context.Context, value *risk.Value, opts Options) (ReviewNote, error)

	mu           sync.Mutex
	suggestCalls int
	reviewCalls  int
}

// Name implements Driver.
func (m *MockDriver) Name() string {
	if m.DriverName == "" {
		return "mock"
	}
	return m.DriverName
}

// IsAvailable implements Driver.
func (m *MockDriver) IsAvailable(_ context.Context) bool {
	return !m.Unavailable
}

// SuggestThreats implements Driver.
func (m *MockDriver) SuggestThreats(ctx context.Context, asset *models.Asset, opts Options) ([]ThreatSuggestion, error) {
	m.mu.Lock()
	m.suggestCalls++
	m.mu.Unlock()

	if m.SuggestFunc != nil {
		return m.SuggestFunc(ctx, asset, opts)
	}
	return nil, nil
}

// ReviewRisk implements Driver.
func (m *MockDriver) ReviewRisk(ctx context.Context, value *risk.Value, opts Options) (ReviewNote, error) {
	m.mu.Lock()
	m.reviewCalls++
	m.mu.Unlock()

	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, value, opts)
	}
	return ReviewNote{RiskID: value.ID, Agrees: true, Confidence: models.ConfidenceMedium}, nil
}

// SuggestCalls reports how often SuggestThreats was called.
func (m *MockDriver) SuggestCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suggestCalls
}

// ReviewCalls reports how often ReviewRisk was called.
func (m *MockDriver) ReviewCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviewCalls
}
