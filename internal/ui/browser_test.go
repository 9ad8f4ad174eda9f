package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// seedBrowserDB stores one analysis with a calculated risk value and
// returns the database plus the analysis ID.
func seedBrowserDB(t *testing.T) (*database.DB, string) {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	analysis := models.NewAnalysis("Gateway TARA", "EV-2027", "central gateway")
	require.NoError(t, db.CreateAnalysis(ctx, analysis))

	asset := models.NewAsset(analysis.ID, "Telematics Unit", models.AssetHardware)
	require.NoError(t, db.BatchInsertAssets(ctx, []*models.Asset{asset}))

	impact, err := models.NewImpactRating(analysis.ID, asset.ID, map[models.ImpactCategory]models.ImpactLevel{
		models.CategorySafety: models.ImpactSevere,
	})
	require.NoError(t, err)
	require.NoError(t, db.SaveImpactRating(ctx, impact))

	threat := models.NewThreatScenario(analysis.ID, asset.ID, "Remote firmware compromise", models.ThreatTampering)
	require.NoError(t, db.BatchInsertThreats(ctx, []*models.ThreatScenario{threat}))

	feasibility, err := models.NewFeasibilityRating(analysis.ID, threat.ID,
		models.TimeOneWeek, models.ExpertiseProficient, models.KnowledgePublic,
		models.OpportunityUnlimited, models.EquipmentStandard)
	require.NoError(t, err)
	require.NoError(t, db.SaveFeasibilityRating(ctx, feasibility))

	engine := risk.NewEngine(risk.ISO21434Standard())
	value, err := engine.Calculate(impact, feasibility)
	require.NoError(t, err)
	require.NoError(t, db.SaveRiskValue(ctx, value))

	return db, analysis.ID
}

// testRisks builds in-memory risk values without touching a database.
func testRisks(count int) []*risk.Value {
	levels := []models.RiskLevel{models.RiskVeryHigh, models.RiskHigh, models.RiskMedium, models.RiskLow}
	risks := make([]*risk.Value, count)
	for i := range risks {
		risks[i] = &risk.Value{
			ID:        string(rune('a' + i)),
			AssetID:   "asset-1",
			ThreatID:  "threat-1",
			RiskLevel: levels[i%len(levels)],
			RiskScore: 0.85 - float64(i)*0.1,
		}
	}
	return risks
}

func TestBrowserCreation(t *testing.T) {
	b := NewBrowser(nil, "an-1")

	assert.Empty(t, b.risks)
	assert.Equal(t, 0, b.cursor)
	assert.True(t, b.loading)
	assert.Empty(t, b.errorMsg)
}

func TestBrowserLoadFromDatabase(t *testing.T) {
	db, analysisID := seedBrowserDB(t)
	b := NewBrowser(db, analysisID)

	msg := b.loadRisks()
	loaded, ok := msg.(LoadRisksMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	require.Len(t, loaded.Risks, 1)

	_, cmd := b.Update(loaded)
	assert.Nil(t, cmd)
	assert.False(t, b.loading)
	assert.Equal(t, "Telematics Unit", b.assetName(loaded.Risks[0].AssetID))
	assert.Equal(t, "Remote firmware compromise", b.threatName(loaded.Risks[0].ThreatID))

	b.width = 120
	b.height = 40
	view := b.View()
	assert.Contains(t, view, "Risk Register")
	assert.Contains(t, view, "Total: 1")
	assert.Contains(t, view, "Telematics Unit")
	assert.Contains(t, view, "Remote firmware compromise")
	assert.Contains(t, view, "very high")
}

func TestBrowserLoadError(t *testing.T) {
	b := NewBrowser(nil, "an-1")

	msg := b.loadRisks()
	loaded, ok := msg.(LoadRisksMsg)
	require.True(t, ok)
	require.Error(t, loaded.Err)

	_, _ = b.Update(loaded)
	assert.Contains(t, b.errorMsg, "database not initialized")

	b.width = 120
	assert.Contains(t, b.View(), "Error:")
}

func TestBrowserNavigation(t *testing.T) {
	b := NewBrowser(nil, "an-1")
	b.loading = false
	b.risks = testRisks(5)

	tests := []struct {
		name     string
		key      string
		startPos int
		wantPos  int
	}{
		{"down from top", "j", 0, 1},
		{"down at bottom", "j", 4, 4},
		{"up from middle", "k", 2, 1},
		{"up at top", "k", 0, 0},
		{"go to top", "g", 3, 0},
		{"go to bottom", "G", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.cursor = tt.startPos
			_, _ = b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
			assert.Equal(t, tt.wantPos, b.cursor)
		})
	}
}

func TestBrowserKeysIgnoredWhileLoading(t *testing.T) {
	b := NewBrowser(nil, "an-1")
	b.loading = true
	b.risks = testRisks(3)

	for _, key := range []string{"j", "k", "g", "G"} {
		_, _ = b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		assert.Equal(t, 0, b.cursor)
	}
}

func TestBrowserDetailToggle(t *testing.T) {
	b := NewBrowser(nil, "an-1")
	b.loading = false
	b.width = 120
	b.risks = testRisks(2)
	b.risks[0].ImpactLevel = models.ImpactSevere
	b.risks[0].LikelihoodLevel = models.LikelihoodVeryHigh
	b.risks[0].Method = risk.MethodISO21434

	_, _ = b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, b.detail)

	view := b.View()
	assert.Contains(t, view, "Impact:")
	assert.Contains(t, view, "severe")
	assert.Contains(t, view, "Likelihood:")
	assert.Contains(t, view, "Method:")

	// Esc closes the pane without leaving the browser.
	_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, b.detail)
	assert.Nil(t, cmd)

	// A second esc quits.
	_, cmd = b.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestBrowserRefresh(t *testing.T) {
	db, analysisID := seedBrowserDB(t)
	b := NewBrowser(db, analysisID)
	b.loading = false
	b.detail = true

	_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	assert.True(t, b.loading)
	assert.False(t, b.detail)
	require.NotNil(t, cmd)
}

func TestBrowserStats(t *testing.T) {
	b := NewBrowser(nil, "an-1")
	b.risks = []*risk.Value{
		{RiskLevel: models.RiskVeryHigh},
		{RiskLevel: models.RiskVeryHigh},
		{RiskLevel: models.RiskHigh},
		{RiskLevel: models.RiskMedium},
		{RiskLevel: models.RiskLow},
		{RiskLevel: models.RiskLow},
	}

	counts := b.stats()
	assert.Equal(t, 6, counts.Total)
	assert.Equal(t, 2, counts.VeryHigh)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 1, counts.Medium)
	assert.Equal(t, 2, counts.Low)
}

func TestBrowserEmptyState(t *testing.T) {
	b := NewBrowser(nil, "an-1")
	b.loading = false
	b.width = 80

	assert.Contains(t, b.View(), "No risk values to display")
}
