// Package risk implements the ISO/SAE 21434 risk determination engine:
// a discrete impact x likelihood matrix, single-pair calculation,
// multi-threat aggregation, and treatment recommendation. Everything here
// is pure computation; persistence and transport live elsewhere.
package risk

import (
	"fmt"

	"github.com/autogt/autogt/internal/models"
)

// Calculation method identifiers recorded on produced risk values.
const (
	MethodISO21434 = "ISO21434"
	MethodCustom   = "ISO21434_CUSTOM"
)

// Thresholds are the level cut points applied to a matrix score. A score
// exactly equal to a cut point belongs to the lower level: score <= LowMax
// is low, LowMax < score <= MediumMax is medium, MediumMax < score <=
// HighMax is high, anything above is very high.
type Thresholds struct {
	LowMax    float64
	MediumMax float64
	HighMax   float64
}

// DefaultThresholds returns the standard ISO/SAE 21434 cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{LowMax: 0.3, MediumMax: 0.6, HighMax: 0.8}
}

// Validate checks the cut points are strictly increasing inside (0,1).
func (t Thresholds) Validate() error {
	if t.LowMax <= 0 || t.HighMax >= 1 {
		return fmt.Errorf("thresholds must lie strictly inside (0,1)")
	}
	if t.LowMax >= t.MediumMax || t.MediumMax >= t.HighMax {
		return fmt.Errorf("thresholds must strictly increase: low %v, medium %v, high %v",
			t.LowMax, t.MediumMax, t.HighMax)
	}
	return nil
}

// Level bands a score using the boundary-to-lower rule.
func (t Thresholds) Level(score float64) models.RiskLevel {
	switch {
	case score <= t.LowMax:
		return models.RiskLow
	case score <= t.MediumMax:
		return models.RiskMedium
	case score <= t.HighMax:
		return models.RiskHigh
	default:
		return models.RiskVeryHigh
	}
}

// cellScores is the canonical 4x5 score table, rows indexed by impact
// ordinal and columns by likelihood ordinal. Scores are monotonic
// non-decreasing along both axes, and every cell's threshold-derived level
// matches the ISO/SAE 21434 discrete matrix.
var cellScores = [4][5]float64{
	{0.05, 0.15, 0.35, 0.45, 0.65}, // negligible
	{0.15, 0.35, 0.45, 0.65, 0.70}, // moderate
	{0.35, 0.45, 0.65, 0.70, 0.85}, // major
	{0.45, 0.65, 0.70, 0.85, 0.95}, // severe
}

// Matrix maps a discrete (impact, likelihood) pair to a risk score and
// level. The level is always derived from the score through the matrix's
// thresholds, so score and level can never disagree.
type Matrix struct {
	method     string
	thresholds Thresholds
}

// ISO21434Standard returns the canonical matrix with default thresholds.
func ISO21434Standard() *Matrix {
	return &Matrix{method: MethodISO21434, thresholds: DefaultThresholds()}
}

// WithCustomThresholds returns a matrix reusing the standard score table
// with caller-supplied cut points.
func WithCustomThresholds(t Thresholds) (*Matrix, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("custom thresholds: %w", err)
	}
	return &Matrix{method: MethodCustom, thresholds: t}, nil
}

// Method returns the calculation method identifier this matrix produces.
func (m *Matrix) Method() string { return m.method }

// Thresholds returns the cut points in effect.
func (m *Matrix) Thresholds() Thresholds { return m.thresholds }

// Score returns the cell score for a pair. Values outside the declared
// domains yield InvalidDomainError, never a default cell.
func (m *Matrix) Score(impact models.ImpactLevel, likelihood models.LikelihoodLevel) (float64, error) {
	row := impact.Ordinal()
	if row == 0 {
		return 0, &InvalidDomainError{Domain: "impact", Value: string(impact)}
	}
	col := likelihood.Ordinal()
	if col == 0 {
		return 0, &InvalidDomainError{Domain: "likelihood", Value: string(likelihood)}
	}
	return cellScores[row-1][col-1], nil
}

// Level returns the risk level for a pair, derived from the cell score via
// the thresholds.
func (m *Matrix) Level(impact models.ImpactLevel, likelihood models.LikelihoodLevel) (models.RiskLevel, error) {
	score, err := m.Score(impact, likelihood)
	if err != nil {
		return "", err
	}
	return m.thresholds.Level(score), nil
}
