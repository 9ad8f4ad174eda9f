package enrichment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/models"
)

func strategyItem(t *testing.T, name string, criticality models.CriticalityLevel, impact models.ImpactLevel) Item {
	t.Helper()
	asset := models.NewAsset("a1000000", name, models.AssetHardware)
	asset.Criticality = criticality

	item := Item{Asset: asset}
	if impact != "" {
		rating, err := models.NewImpactRating("a1000000", asset.ID, map[models.ImpactCategory]models.ImpactLevel{
			models.CategorySafety: impact,
		})
		require.NoError(t, err)
		item.Impact = rating
	}
	return item
}

func selectedNames(items []Item) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Asset.Name)
	}
	return names
}

func TestRegistryKnowsBuiltins(t *testing.T) {
	for _, name := range []string{"all", "critical-only", "high-impact", "smart"} {
		strategy, err := DefaultRegistry.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, strategy.Name())
		assert.NotEmpty(t, strategy.Description())
	}
}

func TestRegistryUnknownStrategy(t *testing.T) {
	_, err := DefaultRegistry.Get("everything")
	require.Error(t, err)

	var notFound *StrategyNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "everything", notFound.Name)
}

func TestAllStrategyOrdersByPriority(t *testing.T) {
	items := []Item{
		strategyItem(t, "Diagnostic port", models.CriticalityLow, models.ImpactNegligible),
		strategyItem(t, "Brake controller", models.CriticalityCritical, models.ImpactSevere),
		strategyItem(t, "Infotainment", models.CriticalityMedium, models.ImpactModerate),
	}

	selected := (&AllStrategy{}).Select(items)
	assert.Equal(t, []string{"Brake controller", "Infotainment", "Diagnostic port"}, selectedNames(selected))

	// The input slice is untouched.
	assert.Equal(t, "Diagnostic port", items[0].Asset.Name)
}

func TestAllStrategyTieBreaksByName(t *testing.T) {
	items := []Item{
		strategyItem(t, "Gateway B", models.CriticalityHigh, models.ImpactMajor),
		strategyItem(t, "Gateway A", models.CriticalityHigh, models.ImpactMajor),
	}

	selected := (&AllStrategy{}).Select(items)
	assert.Equal(t, []string{"Gateway A", "Gateway B"}, selectedNames(selected))
}

func TestCriticalOnlyStrategy(t *testing.T) {
	items := []Item{
		strategyItem(t, "Brake controller", models.CriticalityCritical, models.ImpactSevere),
		strategyItem(t, "Infotainment", models.CriticalityMedium, models.ImpactSevere),
		strategyItem(t, "Gateway", models.CriticalityHigh, models.ImpactMajor),
		strategyItem(t, "Diagnostic port", models.CriticalityLow, models.ImpactNegligible),
	}

	selected := (&CriticalOnlyStrategy{}).Select(items)
	assert.Equal(t, []string{"Brake controller", "Gateway"}, selectedNames(selected))
}

func TestHighImpactStrategy(t *testing.T) {
	items := []Item{
		strategyItem(t, "Brake controller", models.CriticalityCritical, models.ImpactSevere),
		strategyItem(t, "Infotainment", models.CriticalityMedium, models.ImpactModerate),
		strategyItem(t, "Gateway", models.CriticalityHigh, models.ImpactMajor),
		strategyItem(t, "Unrated unit", models.CriticalityCritical, ""),
	}

	selected := (&HighImpactStrategy{}).Select(items)
	assert.Equal(t, []string{"Brake controller", "Gateway"}, selectedNames(selected))
}

func TestSmartStrategySmallAnalysisKeepsEverything(t *testing.T) {
	items := []Item{
		strategyItem(t, "Brake controller", models.CriticalityCritical, models.ImpactSevere),
		strategyItem(t, "Infotainment", models.CriticalityMedium, models.ImpactModerate),
		strategyItem(t, "Diagnostic port", models.CriticalityLow, models.ImpactNegligible),
	}

	selected := (&SmartStrategy{}).Select(items)
	assert.Len(t, selected, 3)
	assert.Equal(t, "Brake controller", selected[0].Asset.Name)
}

func TestSmartStrategyBudgetsLargeAnalysis(t *testing.T) {
	var items []Item
	for i := 0; i < 3; i++ {
		items = append(items, strategyItem(t, fmt.Sprintf("Critical unit %02d", i), models.CriticalityCritical, models.ImpactSevere))
	}
	for i := 0; i < 40; i++ {
		items = append(items, strategyItem(t, fmt.Sprintf("Minor unit %02d", i), models.CriticalityLow, models.ImpactModerate))
	}

	selected := (&SmartStrategy{}).Select(items)
	require.Len(t, selected, smartBudget)
	for i := 0; i < 3; i++ {
		assert.Equal(t, models.CriticalityCritical, selected[i].Asset.Criticality)
	}
}

func TestSmartStrategyKeepsAllCriticalsOverBudget(t *testing.T) {
	var items []Item
	for i := 0; i < smartBudget+5; i++ {
		items = append(items, strategyItem(t, fmt.Sprintf("Critical unit %02d", i), models.CriticalityCritical, models.ImpactSevere))
	}

	selected := (&SmartStrategy{}).Select(items)
	assert.Len(t, selected, smartBudget+5)
}

func TestStrategiesHandleEmptyInput(t *testing.T) {
	for _, name := range []string{"all", "critical-only", "high-impact", "smart"} {
		strategy, err := DefaultRegistry.Get(name)
		require.NoError(t, err)
		assert.Empty(t, strategy.Select(nil), "strategy %s", name)
	}
}
