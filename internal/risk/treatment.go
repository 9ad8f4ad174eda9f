package risk

import "github.com/autogt/autogt/internal/models"

// Recommendations maps a risk level to its applicable treatment strategies,
// in preference order. Every caller that needs "what should we do about
// this risk" goes through here so the policy stays in one place. The
// mapping is total over the risk domain; unknown levels are rejected.
func Recommendations(level models.RiskLevel) ([]models.TreatmentStrategy, error) {
	switch level {
	case models.RiskLow:
		return []models.TreatmentStrategy{models.StrategyAccept, models.StrategyMonitor}, nil
	case models.RiskMedium:
		return []models.TreatmentStrategy{models.StrategyMitigate, models.StrategyTransfer}, nil
	case models.RiskHigh:
		return []models.TreatmentStrategy{models.StrategyMitigate, models.StrategyAvoid}, nil
	case models.RiskVeryHigh:
		return []models.TreatmentStrategy{models.StrategyMitigate, models.StrategyAvoid}, nil
	default:
		return nil, &InvalidDomainError{Domain: "risk", Value: string(level)}
	}
}

// Recommends reports whether a strategy is recommended for a level.
func Recommends(level models.RiskLevel, strategy models.TreatmentStrategy) bool {
	recs, err := Recommendations(level)
	if err != nil {
		return false
	}
	for _, r := range recs {
		if r == strategy {
			return true
		}
	}
	return false
}
