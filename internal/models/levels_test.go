package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImpactLevelOrdering(t *testing.T) {
	levels := ValidImpactLevels()
	assert.Len(t, levels, 4)

	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Ordinal(), levels[i-1].Ordinal(),
			"impact levels must ascend: %s vs %s", levels[i-1], levels[i])
		assert.Greater(t, levels[i].Score(), levels[i-1].Score(),
			"impact scores must ascend: %s vs %s", levels[i-1], levels[i])
	}

	assert.Equal(t, 0, ImpactLevel("bogus").Ordinal())
	assert.False(t, IsValidImpactLevel("bogus"))
	for _, l := range levels {
		assert.True(t, IsValidImpactLevel(l))
	}
}

func TestLikelihoodLevelOrdering(t *testing.T) {
	levels := ValidLikelihoodLevels()
	assert.Len(t, levels, 5)

	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Ordinal(), levels[i-1].Ordinal())
		assert.Greater(t, levels[i].Score(), levels[i-1].Score())
	}

	assert.Equal(t, 0, LikelihoodLevel("bogus").Ordinal())
	assert.False(t, IsValidLikelihoodLevel("bogus"))
}

func TestRiskLevelOrdering(t *testing.T) {
	levels := ValidRiskLevels()
	assert.Len(t, levels, 4)

	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].Ordinal(), levels[i-1].Ordinal())
	}

	assert.False(t, IsValidRiskLevel("critical"))
	assert.True(t, IsValidRiskLevel(RiskVeryHigh))
}

func TestNormalizeImpactLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected ImpactLevel
	}{
		{"negligible", ImpactNegligible},
		{"NEGLIGIBLE", ImpactNegligible},
		{"none", ImpactNegligible},
		{"moderate", ImpactModerate},
		{"Medium", ImpactModerate},
		{"major", ImpactMajor},
		{"severe", ImpactSevere},
		{"Critical", ImpactSevere},
		{"  severe  ", ImpactSevere},
		{"bogus", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeImpactLevel(tt.input))
		})
	}
}

func TestNormalizeLikelihoodLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LikelihoodLevel
	}{
		{"very_low", LikelihoodVeryLow},
		{"Very Low", LikelihoodVeryLow},
		{"VERY-LOW", LikelihoodVeryLow},
		{"low", LikelihoodLow},
		{"medium", LikelihoodMedium},
		{"moderate", LikelihoodMedium},
		{"high", LikelihoodHigh},
		{"very high", LikelihoodVeryHigh},
		{"VeryHigh", LikelihoodVeryHigh},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLikelihoodLevel(tt.input))
		})
	}
}

func TestNormalizeRiskLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected RiskLevel
	}{
		{"low", RiskLow},
		{"medium", RiskMedium},
		{"Moderate", RiskMedium},
		{"high", RiskHigh},
		{"very_high", RiskVeryHigh},
		{"Very High", RiskVeryHigh},
		{"critical", RiskVeryHigh},
		{"nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRiskLevel(tt.input))
		})
	}
}
