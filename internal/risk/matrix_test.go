package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/models"
)

func TestMatrixTotality(t *testing.T) {
	m := ISO21434Standard()

	for _, impact := range models.ValidImpactLevels() {
		for _, likelihood := range models.ValidLikelihoodLevels() {
			score, err := m.Score(impact, likelihood)
			require.NoError(t, err, "score must be defined for (%s, %s)", impact, likelihood)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)

			level, err := m.Level(impact, likelihood)
			require.NoError(t, err, "level must be defined for (%s, %s)", impact, likelihood)
			assert.True(t, models.IsValidRiskLevel(level))
		}
	}
}

func TestMatrixLevels(t *testing.T) {
	m := ISO21434Standard()

	expected := map[models.ImpactLevel][]models.RiskLevel{
		models.ImpactNegligible: {models.RiskLow, models.RiskLow, models.RiskMedium, models.RiskMedium, models.RiskHigh},
		models.ImpactModerate:   {models.RiskLow, models.RiskMedium, models.RiskMedium, models.RiskHigh, models.RiskHigh},
		models.ImpactMajor:      {models.RiskMedium, models.RiskMedium, models.RiskHigh, models.RiskHigh, models.RiskVeryHigh},
		models.ImpactSevere:     {models.RiskMedium, models.RiskHigh, models.RiskHigh, models.RiskVeryHigh, models.RiskVeryHigh},
	}

	for impact, row := range expected {
		for i, likelihood := range models.ValidLikelihoodLevels() {
			level, err := m.Level(impact, likelihood)
			require.NoError(t, err)
			assert.Equal(t, row[i], level, "(%s, %s)", impact, likelihood)
		}
	}
}

func TestMatrixMonotonicity(t *testing.T) {
	m := ISO21434Standard()
	impacts := models.ValidImpactLevels()
	likelihoods := models.ValidLikelihoodLevels()

	// Fixed likelihood: increasing impact never decreases the score.
	for _, likelihood := range likelihoods {
		prev := -1.0
		for _, impact := range impacts {
			score, err := m.Score(impact, likelihood)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, prev,
				"score must not decrease as impact rises at likelihood %s", likelihood)
			prev = score
		}
	}

	// Fixed impact: increasing likelihood never decreases the score.
	for _, impact := range impacts {
		prev := -1.0
		for _, likelihood := range likelihoods {
			score, err := m.Score(impact, likelihood)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, prev,
				"score must not decrease as likelihood rises at impact %s", impact)
			prev = score
		}
	}
}

func TestMatrixCorners(t *testing.T) {
	m := ISO21434Standard()

	low, err := m.Level(models.ImpactNegligible, models.LikelihoodVeryLow)
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, low, "lowest combination lands in the low band")

	high, err := m.Level(models.ImpactSevere, models.LikelihoodVeryHigh)
	require.NoError(t, err)
	assert.Equal(t, models.RiskVeryHigh, high, "highest combination lands in the very high band")
}

func TestMatrixInvalidDomain(t *testing.T) {
	m := ISO21434Standard()

	_, err := m.Score("catastrophic", models.LikelihoodLow)
	var domainErr *InvalidDomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "impact", domainErr.Domain)

	_, err = m.Level(models.ImpactMajor, "imminent")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "likelihood", domainErr.Domain)
}

func TestThresholdBoundaryBelongsToLowerLevel(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  models.RiskLevel
	}{
		{0.0, models.RiskLow},
		{0.30, models.RiskLow},
		{0.31, models.RiskMedium},
		{0.60, models.RiskMedium},
		{0.61, models.RiskHigh},
		{0.80, models.RiskHigh},
		{0.81, models.RiskVeryHigh},
		{1.0, models.RiskVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Level(tt.score), "score %v", tt.score)
	}
}

func TestWithCustomThresholds(t *testing.T) {
	m, err := WithCustomThresholds(Thresholds{LowMax: 0.2, MediumMax: 0.5, HighMax: 0.75})
	require.NoError(t, err)
	assert.Equal(t, MethodCustom, m.Method())

	// Same score table, different banding: the 0.45 cell moves from the
	// default medium band into this matrix's medium band boundary region.
	score, err := m.Score(models.ImpactSevere, models.LikelihoodVeryLow)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, score, 1e-9)
	assert.Equal(t, models.RiskMedium, m.Thresholds().Level(score))

	// 0.70 sits below high_max 0.75, so it stays high; under low cut
	// points 0.85 becomes very high.
	level, err := m.Level(models.ImpactMajor, models.LikelihoodHigh)
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, level)

	level, err = m.Level(models.ImpactSevere, models.LikelihoodHigh)
	require.NoError(t, err)
	assert.Equal(t, models.RiskVeryHigh, level)
}

func TestCustomThresholdBoundaries(t *testing.T) {
	// A cell score exactly equal to a cut point resolves to the lower
	// level on every invocation.
	m, err := WithCustomThresholds(Thresholds{LowMax: 0.35, MediumMax: 0.65, HighMax: 0.85})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		level, err := m.Level(models.ImpactNegligible, models.LikelihoodMedium) // cell 0.35
		require.NoError(t, err)
		assert.Equal(t, models.RiskLow, level)

		level, err = m.Level(models.ImpactModerate, models.LikelihoodHigh) // cell 0.65
		require.NoError(t, err)
		assert.Equal(t, models.RiskMedium, level)

		level, err = m.Level(models.ImpactSevere, models.LikelihoodHigh) // cell 0.85
		require.NoError(t, err)
		assert.Equal(t, models.RiskHigh, level)
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr bool
	}{
		{"defaults are valid", DefaultThresholds(), false},
		{"non-increasing rejected", Thresholds{LowMax: 0.5, MediumMax: 0.5, HighMax: 0.8}, true},
		{"descending rejected", Thresholds{LowMax: 0.6, MediumMax: 0.4, HighMax: 0.8}, true},
		{"zero low rejected", Thresholds{LowMax: 0, MediumMax: 0.5, HighMax: 0.8}, true},
		{"high at one rejected", Thresholds{LowMax: 0.3, MediumMax: 0.6, HighMax: 1.0}, true},
		{"tight but valid", Thresholds{LowMax: 0.1, MediumMax: 0.2, HighMax: 0.99}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}

	_, err := WithCustomThresholds(Thresholds{LowMax: 0.9, MediumMax: 0.5, HighMax: 0.8})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyAggregation))
}
