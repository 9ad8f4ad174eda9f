package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/models"
)

func testImpact(t *testing.T, level models.ImpactLevel) *models.ImpactRating {
	t.Helper()
	category := models.CategorySafety
	if level == models.ImpactNegligible {
		category = models.CategoryOperational
	}
	rating, err := models.NewImpactRating("analysis-1", "asset-1", map[models.ImpactCategory]models.ImpactLevel{
		category: level,
	})
	require.NoError(t, err)
	return rating
}

// feasibilityFactors holds factor grades whose weighted score lands in the
// band for each likelihood level.
var feasibilityFactors = map[models.LikelihoodLevel]struct {
	et models.ElapsedTime
	ex models.Expertise
	kn models.Knowledge
	op models.Opportunity
	eq models.Equipment
}{
	models.LikelihoodVeryLow: {
		models.TimeBeyondSixMonths, models.ExpertiseMultipleExperts,
		models.KnowledgeStrictlySecret, models.OpportunityDifficult, models.EquipmentMultipleBespoke,
	},
	models.LikelihoodLow: {
		models.TimeSixMonths, models.ExpertiseExpert,
		models.KnowledgeConfidential, models.OpportunityDifficult, models.EquipmentBespoke,
	},
	models.LikelihoodMedium: {
		models.TimeOneMonth, models.ExpertiseProficient,
		models.KnowledgeRestricted, models.OpportunityModerate, models.EquipmentSpecialized,
	},
	models.LikelihoodHigh: {
		models.TimeOneWeek, models.ExpertiseProficient,
		models.KnowledgePublic, models.OpportunityEasy, models.EquipmentStandard,
	},
	models.LikelihoodVeryHigh: {
		models.TimeOneDay, models.ExpertiseLayperson,
		models.KnowledgePublic, models.OpportunityUnlimited, models.EquipmentStandard,
	},
}

func testFeasibility(t *testing.T, level models.LikelihoodLevel) *models.FeasibilityRating {
	t.Helper()
	f, ok := feasibilityFactors[level]
	require.True(t, ok, "no factor fixture for likelihood %s", level)

	rating, err := models.NewFeasibilityRating("analysis-1", "threat-1", f.et, f.ex, f.kn, f.op, f.eq)
	require.NoError(t, err)
	require.Equal(t, level, rating.Level, "fixture factors must map to the requested likelihood")
	return rating
}

func TestEngineCalculate(t *testing.T) {
	engine := NewEngine(ISO21434Standard())

	value, err := engine.Calculate(testImpact(t, models.ImpactMajor), testFeasibility(t, models.LikelihoodHigh))
	require.NoError(t, err)

	assert.Equal(t, models.ImpactMajor, value.ImpactLevel)
	assert.Equal(t, models.LikelihoodHigh, value.LikelihoodLevel)
	assert.InDelta(t, 0.70, value.RiskScore, 1e-9)
	assert.Equal(t, models.RiskHigh, value.RiskLevel)
	assert.Equal(t, MethodISO21434, value.Method)
	assert.Equal(t, "analysis-1", value.AnalysisID)
	assert.Equal(t, "asset-1", value.AssetID)
	assert.Equal(t, "threat-1", value.ThreatID)
	assert.NotEmpty(t, value.ID)
	assert.False(t, value.CreatedAt.IsZero())
}

func TestEngineCalculateAllCombinations(t *testing.T) {
	engine := NewEngine(ISO21434Standard())

	for _, impact := range models.ValidImpactLevels() {
		for _, likelihood := range models.ValidLikelihoodLevels() {
			value, err := engine.Calculate(testImpact(t, impact), testFeasibility(t, likelihood))
			require.NoError(t, err, "(%s, %s)", impact, likelihood)
			assert.True(t, models.IsValidRiskLevel(value.RiskLevel))

			// Score and level come from the same matrix lookup, so they
			// must agree with the banding thresholds.
			assert.Equal(t, engine.Matrix().Thresholds().Level(value.RiskScore), value.RiskLevel)
		}
	}
}

func TestEngineDeterminism(t *testing.T) {
	engine := NewEngine(ISO21434Standard())
	impact := testImpact(t, models.ImpactModerate)
	feasibility := testFeasibility(t, models.LikelihoodMedium)

	first, err := engine.Calculate(impact, feasibility)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		next, err := engine.Calculate(impact, feasibility)
		require.NoError(t, err)
		assert.Equal(t, first.RiskScore, next.RiskScore)
		assert.Equal(t, first.RiskLevel, next.RiskLevel)
		assert.Equal(t, first.ID, next.ID, "identity derives from stable inputs")
	}
}

func TestEngineMissingRatings(t *testing.T) {
	engine := NewEngine(ISO21434Standard())
	impact := testImpact(t, models.ImpactMajor)
	feasibility := testFeasibility(t, models.LikelihoodHigh)

	tests := []struct {
		name        string
		impact      *models.ImpactRating
		feasibility *models.FeasibilityRating
		which       string
	}{
		{"nil impact", nil, feasibility, "impact"},
		{"nil feasibility", impact, nil, "feasibility"},
		{"unset impact level", &models.ImpactRating{}, feasibility, "impact"},
		{"unset feasibility level", impact, &models.FeasibilityRating{}, "feasibility"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Calculate(tt.impact, tt.feasibility)
			var missing *MissingRatingError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.which, missing.Which)
		})
	}
}

func TestEngineRecalculate(t *testing.T) {
	engine := NewEngine(ISO21434Standard())

	original, err := engine.Calculate(testImpact(t, models.ImpactModerate), testFeasibility(t, models.LikelihoodLow))
	require.NoError(t, err)
	original.Justification = "initial assessment"

	updated, err := engine.Recalculate(original, testImpact(t, models.ImpactSevere), testFeasibility(t, models.LikelihoodHigh))
	require.NoError(t, err)

	assert.Equal(t, original.ID, updated.ID, "recalculation keeps the record identity")
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "initial assessment", updated.Justification)
	assert.Equal(t, models.ImpactSevere, updated.ImpactLevel)
	assert.Equal(t, models.LikelihoodHigh, updated.LikelihoodLevel)
	assert.InDelta(t, 0.85, updated.RiskScore, 1e-9)
	assert.Equal(t, models.RiskVeryHigh, updated.RiskLevel)

	_, err = engine.Recalculate(nil, testImpact(t, models.ImpactSevere), testFeasibility(t, models.LikelihoodHigh))
	require.Error(t, err)
}

func TestEngineValidate(t *testing.T) {
	engine := NewEngine(ISO21434Standard())

	value, err := engine.Calculate(testImpact(t, models.ImpactMajor), testFeasibility(t, models.LikelihoodMedium))
	require.NoError(t, err)
	require.NoError(t, engine.Validate(value), "freshly calculated values are always consistent")

	tampered := *value
	tampered.RiskLevel = models.RiskLow
	var inconsistent *InconsistentStateError
	require.ErrorAs(t, engine.Validate(&tampered), &inconsistent)
	assert.Equal(t, string(models.RiskLow), inconsistent.Stored)
	assert.Equal(t, string(models.RiskHigh), inconsistent.Derived)

	corrupted := *value
	corrupted.RiskLevel = "catastrophic"
	var domainErr *InvalidDomainError
	require.ErrorAs(t, engine.Validate(&corrupted), &domainErr)

	foreign := *value
	foreign.Method = "NIST_CVSS"
	require.Error(t, engine.Validate(&foreign))
}

func TestEngineCustomThresholds(t *testing.T) {
	matrix, err := WithCustomThresholds(Thresholds{LowMax: 0.5, MediumMax: 0.7, HighMax: 0.9})
	require.NoError(t, err)
	engine := NewEngine(matrix)

	// Under the relaxed low cut the 0.45 cell drops to low.
	value, err := engine.Calculate(testImpact(t, models.ImpactSevere), testFeasibility(t, models.LikelihoodVeryLow))
	require.NoError(t, err)
	assert.InDelta(t, 0.45, value.RiskScore, 1e-9)
	assert.Equal(t, models.RiskLow, value.RiskLevel)
	assert.Equal(t, MethodCustom, value.Method)

	// Validation uses the engine's own matrix, so values banded by a
	// different method are rejected.
	standard := NewEngine(ISO21434Standard())
	require.Error(t, standard.Validate(value))
}
