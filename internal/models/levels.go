package models

import "strings"

// ImpactLevel is the ordinal impact domain used by impact ratings and the
// risk matrix.
type ImpactLevel string

// Impact levels, ordered from least to most severe.
const (
	ImpactNegligible ImpactLevel = "negligible"
	ImpactModerate   ImpactLevel = "moderate"
	ImpactMajor      ImpactLevel = "major"
	ImpactSevere     ImpactLevel = "severe"
)

// ValidImpactLevels returns all impact levels in ascending order.
func ValidImpactLevels() []ImpactLevel {
	return []ImpactLevel{ImpactNegligible, ImpactModerate, ImpactMajor, ImpactSevere}
}

// IsValidImpactLevel checks if an impact level is part of the domain.
func IsValidImpactLevel(level ImpactLevel) bool {
	switch level {
	case ImpactNegligible, ImpactModerate, ImpactMajor, ImpactSevere:
		return true
	default:
		return false
	}
}

// Ordinal returns the 1-based position of the level, 0 for unknown values.
func (l ImpactLevel) Ordinal() int {
	switch l {
	case ImpactNegligible:
		return 1
	case ImpactModerate:
		return 2
	case ImpactMajor:
		return 3
	case ImpactSevere:
		return 4
	default:
		return 0
	}
}

// Score returns the canonical numeric impact score for the level.
func (l ImpactLevel) Score() float64 {
	switch l {
	case ImpactNegligible:
		return 0.0
	case ImpactModerate:
		return 0.3
	case ImpactMajor:
		return 0.7
	case ImpactSevere:
		return 1.0
	default:
		return 0.0
	}
}

func (l ImpactLevel) String() string { return string(l) }

// NormalizeImpactLevel maps loose spellings onto the impact domain. Unknown
// input yields the empty level.
func NormalizeImpactLevel(s string) ImpactLevel {
	switch normalizeLevelToken(s) {
	case "negligible", "none":
		return ImpactNegligible
	case "moderate", "medium":
		return ImpactModerate
	case "major", "serious":
		return ImpactMajor
	case "severe", "critical":
		return ImpactSevere
	default:
		return ""
	}
}

// LikelihoodLevel is the ordinal attack feasibility domain.
type LikelihoodLevel string

// Likelihood levels, ordered from least to most feasible.
const (
	LikelihoodVeryLow  LikelihoodLevel = "very_low"
	LikelihoodLow      LikelihoodLevel = "low"
	LikelihoodMedium   LikelihoodLevel = "medium"
	LikelihoodHigh     LikelihoodLevel = "high"
	LikelihoodVeryHigh LikelihoodLevel = "very_high"
)

// ValidLikelihoodLevels returns all likelihood levels in ascending order.
func ValidLikelihoodLevels() []LikelihoodLevel {
	return []LikelihoodLevel{
		LikelihoodVeryLow,
		LikelihoodLow,
		LikelihoodMedium,
		LikelihoodHigh,
		LikelihoodVeryHigh,
	}
}

// IsValidLikelihoodLevel checks if a likelihood level is part of the domain.
func IsValidLikelihoodLevel(level LikelihoodLevel) bool {
	switch level {
	case LikelihoodVeryLow, LikelihoodLow, LikelihoodMedium, LikelihoodHigh, LikelihoodVeryHigh:
		return true
	default:
		return false
	}
}

// Ordinal returns the 1-based position of the level, 0 for unknown values.
func (l LikelihoodLevel) Ordinal() int {
	switch l {
	case LikelihoodVeryLow:
		return 1
	case LikelihoodLow:
		return 2
	case LikelihoodMedium:
		return 3
	case LikelihoodHigh:
		return 4
	case LikelihoodVeryHigh:
		return 5
	default:
		return 0
	}
}

// Score returns the canonical numeric feasibility score for the level.
func (l LikelihoodLevel) Score() float64 {
	switch l {
	case LikelihoodVeryLow:
		return 0.1
	case LikelihoodLow:
		return 0.3
	case LikelihoodMedium:
		return 0.5
	case LikelihoodHigh:
		return 0.8
	case LikelihoodVeryHigh:
		return 1.0
	default:
		return 0.0
	}
}

func (l LikelihoodLevel) String() string { return string(l) }

// NormalizeLikelihoodLevel maps loose spellings onto the likelihood domain.
func NormalizeLikelihoodLevel(s string) LikelihoodLevel {
	switch normalizeLevelToken(s) {
	case "very_low", "verylow", "minimal":
		return LikelihoodVeryLow
	case "low":
		return LikelihoodLow
	case "medium", "moderate":
		return LikelihoodMedium
	case "high":
		return LikelihoodHigh
	case "very_high", "veryhigh":
		return LikelihoodVeryHigh
	default:
		return ""
	}
}

// RiskLevel is the ordinal risk classification produced by the risk matrix.
type RiskLevel string

// Risk levels, ordered from least to most severe.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// ValidRiskLevels returns all risk levels in ascending order.
func ValidRiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}
}

// IsValidRiskLevel checks if a risk level is part of the domain.
func IsValidRiskLevel(level RiskLevel) bool {
	switch level {
	case RiskLow, RiskMedium, RiskHigh, RiskVeryHigh:
		return true
	default:
		return false
	}
}

// Ordinal returns the 1-based position of the level, 0 for unknown values.
func (l RiskLevel) Ordinal() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskVeryHigh:
		return 4
	default:
		return 0
	}
}

func (l RiskLevel) String() string { return string(l) }

// NormalizeRiskLevel maps loose spellings onto the risk domain.
func NormalizeRiskLevel(s string) RiskLevel {
	switch normalizeLevelToken(s) {
	case "low":
		return RiskLow
	case "medium", "moderate":
		return RiskMedium
	case "high":
		return RiskHigh
	case "very_high", "veryhigh", "critical":
		return RiskVeryHigh
	default:
		return ""
	}
}

// normalizeLevelToken lowercases and collapses separators so "Very High",
// "VERY-HIGH", and "very_high" compare equal.
func normalizeLevelToken(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = strings.ReplaceAll(lower, " ", "_")
	lower = strings.ReplaceAll(lower, "-", "_")
	return lower
}
