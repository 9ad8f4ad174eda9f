// Package enrichment provides assistant-backed support for threat
// identification and risk review. Drivers encapsulate the reasoning
// backend; the rest of the package handles selection, caching, and
// orchestration of enrichment runs.
package enrichment

import (
	"time"

	"github.com/autogt/autogt/internal/models"
)

// ThreatSuggestion is one candidate threat scenario proposed for an asset.
type ThreatSuggestion struct {
	Name           string                  `json:"name"`
	Category       models.ThreatCategory   `json:"category"`
	Vector         models.AttackVector     `json:"vector"`
	Property       models.SecurityProperty `json:"property"`
	DamageScenario string                  `json:"damage_scenario,omitempty"`
	Rationale      string                  `json:"rationale"`
	Confidence     models.ConfidenceLevel  `json:"confidence"`
}

// ReviewNote is an assistant's assessment of one calculated risk.
type ReviewNote struct {
	RiskID     string                 `json:"risk_id"`
	Agrees     bool                   `json:"agrees"`
	Note       string                 `json:"note"`
	Confidence models.ConfidenceLevel `json:"confidence"`
}

// Options tunes a single driver invocation.
type Options struct {
	Vehicle        string `json:"vehicle,omitempty"`
	MaxSuggestions int    `json:"max_suggestions,omitempty"`
}

// Item pairs an asset with its impact rating for strategy selection. The
// rating is nil before the impact step has run.
type Item struct {
	Asset  *models.Asset
	Impact *models.ImpactRating
}

// AssetEnrichment records the outcome for one asset in a run.
type AssetEnrichment struct {
	AssetID     string             `json:"asset_id"`
	AssetName   string             `json:"asset_name"`
	Suggestions []ThreatSuggestion `json:"suggestions,omitempty"`
	Cached      bool               `json:"cached,omitempty"`
	Err         string             `json:"error,omitempty"`
}

// Metadata describes an enrichment run.
type Metadata struct {
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	RunID          string    `json:"run_id"`
	Strategy       string    `json:"strategy"`
	Driver         string    `json:"driver"`
	TotalAssets    int       `json:"total_assets"`
	SelectedAssets int       `json:"selected_assets"`
	EnrichedAssets int       `json:"enriched_assets"`
	CacheHits      int       `json:"cache_hits"`
	Errors         []string  `json:"errors,omitempty"`
}

// RunResult is the persisted enrichments.json artifact.
type RunResult struct {
	Metadata    Metadata          `json:"metadata"`
	Enrichments []AssetEnrichment `json:"enrichments"`
}
