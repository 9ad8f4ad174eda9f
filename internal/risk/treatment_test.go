package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/models"
)

func TestRecommendations(t *testing.T) {
	tests := []struct {
		level models.RiskLevel
		want  []models.TreatmentStrategy
	}{
		{models.RiskLow, []models.TreatmentStrategy{models.StrategyAccept, models.StrategyMonitor}},
		{models.RiskMedium, []models.TreatmentStrategy{models.StrategyMitigate, models.StrategyTransfer}},
		{models.RiskHigh, []models.TreatmentStrategy{models.StrategyMitigate, models.StrategyAvoid}},
		{models.RiskVeryHigh, []models.TreatmentStrategy{models.StrategyMitigate, models.StrategyAvoid}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			got, err := Recommendations(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecommendationsTotality(t *testing.T) {
	for _, level := range models.ValidRiskLevels() {
		recs, err := Recommendations(level)
		require.NoError(t, err, "level %s must have recommendations", level)
		assert.NotEmpty(t, recs)
		for _, r := range recs {
			assert.True(t, models.IsValidTreatmentStrategy(r))
		}
	}
}

func TestHighRiskNeverAccepted(t *testing.T) {
	for _, level := range []models.RiskLevel{models.RiskHigh, models.RiskVeryHigh} {
		recs, err := Recommendations(level)
		require.NoError(t, err)
		assert.NotContains(t, recs, models.StrategyAccept,
			"acceptance is not an option at level %s", level)
	}
}

func TestRecommendationsUnknownLevel(t *testing.T) {
	_, err := Recommendations("catastrophic")
	var domainErr *InvalidDomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "risk", domainErr.Domain)
	assert.Equal(t, "catastrophic", domainErr.Value)

	_, err = Recommendations("")
	require.ErrorAs(t, err, &domainErr)
}

func TestRecommends(t *testing.T) {
	assert.True(t, Recommends(models.RiskLow, models.StrategyAccept))
	assert.True(t, Recommends(models.RiskHigh, models.StrategyMitigate))
	assert.False(t, Recommends(models.RiskHigh, models.StrategyAccept))
	assert.False(t, Recommends(models.RiskLow, models.StrategyAvoid))
	assert.False(t, Recommends("catastrophic", models.StrategyAccept))
}
