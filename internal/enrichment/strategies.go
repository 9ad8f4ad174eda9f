package enrichment

import (
	"sort"

	"github.com/autogt/autogt/internal/models"
)

// smartBudget caps how many assets the smart strategy hands to the
// assistant beyond the critical ones.
const smartBudget = 20

// AllStrategy selects every asset.
type AllStrategy struct{}

// Name returns the strategy name.
func (s *AllStrategy) Name() string { return "all" }

// Description returns a human-readable description.
func (s *AllStrategy) Description() string {
	return "Enrich every asset in the analysis"
}

// Select implements Strategy.
func (s *AllStrategy) Select(items []Item) []Item {
	selected := make([]Item, len(items))
	copy(selected, items)
	sortByPriority(selected)
	return selected
}

// CriticalOnlyStrategy selects assets rated critical or high.
type CriticalOnlyStrategy struct{}

// Name returns the strategy name.
func (s *CriticalOnlyStrategy) Name() string { return "critical-only" }

// Description returns a human-readable description.
func (s *CriticalOnlyStrategy) Description() string {
	return "Enrich only assets with critical or high criticality"
}

// Select implements Strategy.
func (s *CriticalOnlyStrategy) Select(items []Item) []Item {
	var selected []Item
	for _, item := range items {
		if item.Asset != nil && item.Asset.Criticality.Ordinal() >= models.CriticalityHigh.Ordinal() {
			selected = append(selected, item)
		}
	}
	sortByPriority(selected)
	return selected
}

// HighImpactStrategy selects assets whose impact rating is major or worse.
// Assets without a rating are skipped, so this strategy only makes sense
// after the impact rating step has run.
type HighImpactStrategy struct{}

// Name returns the strategy name.
func (s *HighImpactStrategy) Name() string { return "high-impact" }

// Description returns a human-readable description.
func (s *HighImpactStrategy) Description() string {
	return "Enrich assets rated major or severe impact"
}

// Select implements Strategy.
func (s *HighImpactStrategy) Select(items []Item) []Item {
	var selected []Item
	for _, item := range items {
		if item.Impact != nil && item.Impact.Level.Ordinal() >= models.ImpactMajor.Ordinal() {
			selected = append(selected, item)
		}
	}
	sortByPriority(selected)
	return selected
}

// SmartStrategy keeps every critical asset and fills the remaining budget
// with the highest-priority rest. Small analyses get everything, large
// ones stay bounded.
type SmartStrategy struct{}

// Name returns the strategy name.
func (s *SmartStrategy) Name() string { return "smart" }

// Description returns a human-readable description.
func (s *SmartStrategy) Description() string {
	return "Enrich all critical assets plus a budget of the highest-impact rest"
}

// Select implements Strategy.
func (s *SmartStrategy) Select(items []Item) []Item {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sortByPriority(sorted)

	var selected, rest []Item
	for _, item := range sorted {
		if item.Asset != nil && item.Asset.Criticality == models.CriticalityCritical {
			selected = append(selected, item)
		} else {
			rest = append(rest, item)
		}
	}
	for _, item := range rest {
		if len(selected) >= smartBudget {
			break
		}
		selected = append(selected, item)
	}
	return selected
}

// sortByPriority orders items by impact level, then criticality, then
// asset name so selections are deterministic.
func sortByPriority(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if a, b := impactOrdinal(items[i]), impactOrdinal(items[j]); a != b {
			return a > b
		}
		if a, b := criticalityOrdinal(items[i]), criticalityOrdinal(items[j]); a != b {
			return a > b
		}
		return assetName(items[i]) < assetName(items[j])
	})
}

func impactOrdinal(item Item) int {
	if item.Impact == nil {
		return 0
	}
	return item.Impact.Level.Ordinal()
}

func criticalityOrdinal(item Item) int {
	if item.Asset == nil {
		return 0
	}
	return item.Asset.Criticality.Ordinal()
}

func assetName(item Item) string {
	if item.Asset == nil {
		return ""
	}
	return item.Asset.Name
}

// init registers the built-in strategies.
func init() {
	DefaultRegistry.Register("all", func() Strategy { return &AllStrategy{} })
	DefaultRegistry.Register("critical-only", func() Strategy { return &CriticalOnlyStrategy{} })
	DefaultRegistry.Register("high-impact", func() Strategy { return &HighImpactStrategy{} })
	DefaultRegistry.Register("smart", func() Strategy { return &SmartStrategy{} })
}
