package risk

import (
	"fmt"

	"github.com/autogt/autogt/internal/models"
)

// Policy selects how multiple risk values for one asset combine.
type Policy string

// Aggregation policies.
const (
	PolicyMaximum  Policy = "maximum"
	PolicyAverage  Policy = "average"
	PolicyWeighted Policy = "weighted"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyMaximum, PolicyAverage, PolicyWeighted:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown aggregation policy: %q", s)
	}
}

// Summary is the combined risk of several threats against one asset.
type Summary struct {
	Score  float64          `json:"score"`
	Level  models.RiskLevel `json:"level"`
	Policy Policy           `json:"policy"`
	Count  int              `json:"count"`
}

// Aggregator combines risk values under a matrix's thresholds.
type Aggregator struct {
	matrix *Matrix
}

// NewAggregator creates an aggregator deriving summary levels through the
// given matrix.
func NewAggregator(m *Matrix) *Aggregator {
	return &Aggregator{matrix: m}
}

// Aggregate dispatches to the named policy.
func (a *Aggregator) Aggregate(policy Policy, values []*Value) (*Summary, error) {
	switch policy {
	case PolicyMaximum:
		return a.Maximum(values)
	case PolicyAverage:
		return a.Average(values)
	case PolicyWeighted:
		return a.Weighted(values)
	default:
		return nil, fmt.Errorf("unknown aggregation policy: %q", policy)
	}
}

// Maximum returns the score and level of the most severe input. Ties keep
// the first input achieving the maximum. Use when any single severe threat
// should dominate the asset's posture.
func (a *Aggregator) Maximum(values []*Value) (*Summary, error) {
	if len(values) == 0 {
		return nil, ErrEmptyAggregation
	}

	best := values[0]
	for _, v := range values[1:] {
		if v.RiskScore > best.RiskScore {
			best = v
		}
	}

	return &Summary{
		Score:  models.Round3(best.RiskScore),
		Level:  best.RiskLevel,
		Policy: PolicyMaximum,
		Count:  len(values),
	}, nil
}

// Average returns the arithmetic mean score with the level re-derived from
// that mean through the matrix thresholds. Discrete levels are never
// averaged directly.
func (a *Aggregator) Average(values []*Value) (*Summary, error) {
	if len(values) == 0 {
		return nil, ErrEmptyAggregation
	}

	var sum float64
	for _, v := range values {
		sum += v.RiskScore
	}
	mean := models.Round3(sum / float64(len(values)))

	return &Summary{
		Score:  mean,
		Level:  a.matrix.Thresholds().Level(mean),
		Policy: PolicyAverage,
		Count:  len(values),
	}, nil
}

// Weighted weights each input by its impact ordinal so higher-impact
// threats count more. The result never falls below the plain average, and
// equals it exactly when all impacts are the same level.
func (a *Aggregator) Weighted(values []*Value) (*Summary, error) {
	if len(values) == 0 {
		return nil, ErrEmptyAggregation
	}

	var weightedSum, weightTotal, plainSum float64
	for _, v := range values {
		ord := v.ImpactLevel.Ordinal()
		if ord == 0 {
			return nil, &InvalidDomainError{Domain: "impact", Value: string(v.ImpactLevel)}
		}
		w := float64(ord)
		weightedSum += v.RiskScore * w
		weightTotal += w
		plainSum += v.RiskScore
	}

	weighted := weightedSum / weightTotal
	mean := plainSum / float64(len(values))
	if weighted < mean {
		weighted = mean
	}
	score := models.Round3(weighted)

	return &Summary{
		Score:  score,
		Level:  a.matrix.Thresholds().Level(score),
		Policy: PolicyWeighted,
		Count:  len(values),
	}, nil
}
