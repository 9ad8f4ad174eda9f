package risk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/autogt/autogt/internal/models"
)

// Value is one calculated risk for an (asset, threat) pair. Score and level
// are always set together by the engine; nothing mutates them separately.
type Value struct {
	CreatedAt       time.Time              `json:"created_at"`
	ID              string                 `json:"id"`
	AnalysisID      string                 `json:"analysis_id"`
	AssetID         string                 `json:"asset_id"`
	ThreatID        string                 `json:"threat_id"`
	ImpactLevel     models.ImpactLevel     `json:"impact_level"`
	LikelihoodLevel models.LikelihoodLevel `json:"likelihood_level"`
	RiskLevel       models.RiskLevel       `json:"risk_level"`
	RiskScore       float64                `json:"risk_score"`
	Method          string                 `json:"calculation_method"`
	Justification   string                 `json:"justification,omitempty"`
}

// GenerateRiskID creates a stable ID so recalculation under the same method
// replaces the same record.
func GenerateRiskID(analysisID, threatID, method string) string {
	core := fmt.Sprintf("%s:%s:%s", analysisID, threatID, method)
	hash := sha256.Sum256([]byte(core))
	return hex.EncodeToString(hash[:8])
}

// WithinThreshold reports whether the value's level is at or below max.
func (v *Value) WithinThreshold(max models.RiskLevel) bool {
	return v.RiskLevel.Ordinal() != 0 && v.RiskLevel.Ordinal() <= max.Ordinal()
}

// FormattedScore renders the score with at most three decimal places,
// trimming trailing zeros.
func (v *Value) FormattedScore() string {
	return strconv.FormatFloat(models.Round3(v.RiskScore), 'f', -1, 64)
}
