package enrichment

import (
	"context"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// Driver is the reasoning backend for enrichment. Implementations must be
// safe for concurrent use.
type Driver interface {
	// Name identifies the driver in cache keys and run metadata.
	Name() string

	// IsAvailable reports whether the driver can serve requests.
	IsAvailable(ctx context.Context) bool

	// SuggestThreats proposes candidate threat scenarios for an asset.
	SuggestThreats(ctx context.Context, asset *models.Asset, opts Options) ([]ThreatSuggestion, error)

	// ReviewRisk assesses one calculated risk value.
	ReviewRisk(ctx context.Context, value *risk.Value, opts Options) (ReviewNote, error)
}
