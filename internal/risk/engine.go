package risk

import (
	"fmt"
	"time"

	"github.com/autogt/autogt/internal/models"
)

// Engine produces risk values from rating pairs using one configured
// matrix. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	matrix *Matrix
}

// NewEngine creates an engine for the given matrix.
func NewEngine(m *Matrix) *Engine {
	return &Engine{matrix: m}
}

// Matrix returns the engine's matrix.
func (e *Engine) Matrix() *Matrix { return e.matrix }

// Calculate derives a risk value from an impact and a feasibility rating.
// Both ratings must be present and resolved; score and level are set
// together so they can never disagree.
func (e *Engine) Calculate(impact *models.ImpactRating, feasibility *models.FeasibilityRating) (*Value, error) {
	if impact == nil || impact.Level == "" {
		return nil, &MissingRatingError{Which: "impact"}
	}
	if feasibility == nil || feasibility.Level == "" {
		return nil, &MissingRatingError{Which: "feasibility"}
	}

	score, err := e.matrix.Score(impact.Level, feasibility.Level)
	if err != nil {
		return nil, err
	}

	return &Value{
		ID:              GenerateRiskID(impact.AnalysisID, feasibility.ThreatID, e.matrix.Method()),
		AnalysisID:      impact.AnalysisID,
		AssetID:         impact.AssetID,
		ThreatID:        feasibility.ThreatID,
		ImpactLevel:     impact.Level,
		LikelihoodLevel: feasibility.Level,
		RiskLevel:       e.matrix.Thresholds().Level(score),
		RiskScore:       score,
		Method:          e.matrix.Method(),
		CreatedAt:       time.Now(),
	}, nil
}

// Recalculate re-derives score and level from the currently referenced
// ratings and replaces both together. Identity fields and the justification
// carry over from the existing value.
func (e *Engine) Recalculate(existing *Value, impact *models.ImpactRating, feasibility *models.FeasibilityRating) (*Value, error) {
	if existing == nil {
		return nil, fmt.Errorf("recalculate requires an existing risk value")
	}

	fresh, err := e.Calculate(impact, feasibility)
	if err != nil {
		return nil, err
	}

	fresh.ID = existing.ID
	fresh.Justification = existing.Justification
	if !existing.CreatedAt.IsZero() {
		fresh.CreatedAt = existing.CreatedAt
	}
	return fresh, nil
}

// Validate checks a risk value's integrity: re-deriving the level from the
// stored score under the engine's thresholds must reproduce the stored
// level. Used by data audits, not by normal calculation.
func (e *Engine) Validate(v *Value) error {
	if v == nil {
		return fmt.Errorf("validate requires a risk value")
	}
	if v.Method != e.matrix.Method() {
		return fmt.Errorf("risk value %s was calculated with method %s, engine uses %s",
			v.ID, v.Method, e.matrix.Method())
	}
	if !models.IsValidRiskLevel(v.RiskLevel) {
		return &InvalidDomainError{Domain: "risk", Value: string(v.RiskLevel)}
	}

	derived := e.matrix.Thresholds().Level(v.RiskScore)
	if derived != v.RiskLevel {
		return &InconsistentStateError{
			ID:      v.ID,
			Method:  v.Method,
			Stored:  string(v.RiskLevel),
			Derived: string(derived),
			Score:   v.RiskScore,
		}
	}
	return nil
}
