package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// ImpactRating grades the damage a compromised asset could cause across the
// four ISO/SAE 21434 categories. The overall level and score derive from the
// worst category: a safety-severe asset is severe regardless of its privacy
// grade.
type ImpactRating struct {
	CreatedAt  time.Time                      `json:"created_at"`
	Categories map[ImpactCategory]ImpactLevel `json:"categories"`
	ID         string                         `json:"id"`
	AnalysisID string                         `json:"analysis_id"`
	AssetID    string                         `json:"asset_id"`
	Rationale  string                         `json:"rationale,omitempty"`
	Level      ImpactLevel                    `json:"level"`
	Score      float64                        `json:"score"`
}

// NewImpactRating derives the overall level and score from per-category
// ratings. At least one category must be rated.
func NewImpactRating(analysisID, assetID string, categories map[ImpactCategory]ImpactLevel) (*ImpactRating, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("impact rating requires at least one category")
	}

	worst := ImpactNegligible
	for category, level := range categories {
		if !IsValidImpactCategory(category) {
			return nil, fmt.Errorf("unknown impact category: %s", category)
		}
		if !IsValidImpactLevel(level) {
			return nil, fmt.Errorf("unknown impact level for %s: %s", category, level)
		}
		if level.Ordinal() > worst.Ordinal() {
			worst = level
		}
	}

	return &ImpactRating{
		ID:         GenerateRatingID(analysisID, assetID, "impact"),
		AnalysisID: analysisID,
		AssetID:    assetID,
		Categories: categories,
		Level:      worst,
		Score:      Round3(worst.Score()),
		CreatedAt:  time.Now(),
	}, nil
}

// IsValid checks the derived fields against the category ratings.
func (r *ImpactRating) IsValid() error {
	if r.AssetID == "" {
		return fmt.Errorf("impact rating missing required field: asset_id")
	}
	if !IsValidImpactLevel(r.Level) {
		return fmt.Errorf("impact rating has unknown level: %s", r.Level)
	}
	if r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("impact rating score out of range: %v", r.Score)
	}
	return nil
}

// GenerateRatingID creates a stable ID for a rating record.
func GenerateRatingID(analysisID, subjectID, kind string) string {
	core := fmt.Sprintf("%s:%s:%s", analysisID, subjectID, kind)
	hash := sha256.Sum256([]byte(core))
	return hex.EncodeToString(hash[:8])
}

// Round3 rounds to three decimal places, the precision all derived scores
// carry.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
