package treatment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/logger"
)

// maxCountermeasures caps how many measures a draft proposes per group.
const maxCountermeasures = 3

// Cost model for draft estimates: a base figure per strategy scaled by
// the aggregated risk level.
var (
	strategyBaseCost = map[models.TreatmentStrategy]float64{
		models.StrategyMitigate: 60000,
		models.StrategyTransfer: 25000,
		models.StrategyAvoid:    150000,
	}
	levelCostFactor = map[models.RiskLevel]float64{
		models.RiskLow:      0.5,
		models.RiskMedium:   1.0,
		models.RiskHigh:     1.5,
		models.RiskVeryHigh: 2.0,
	}
)

// Planner drafts treatment records from an analysis's assessed risks.
type Planner struct {
	knowledge  *KnowledgeBase
	aggregator *risk.Aggregator
	policy     risk.Policy
	logger     logger.Logger
}

// NewPlanner builds a planner over a countermeasure catalog and a risk
// matrix. A nil knowledge base falls back to the built-in catalog.
func NewPlanner(kb *KnowledgeBase, matrix *risk.Matrix, policy risk.Policy, log logger.Logger) *Planner {
	if kb == nil {
		kb = DefaultKnowledgeBase()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Planner{
		knowledge:  kb,
		aggregator: risk.NewAggregator(matrix),
		policy:     policy,
		logger:     log,
	}
}

// PlanInput carries everything the planner needs to group and draft.
type PlanInput struct {
	Analysis *models.Analysis
	Assets   []*models.Asset
	Threats  []*models.ThreatScenario
	Risks    []*risk.Value
}

// groupKey identifies one treatment group.
type groupKey struct {
	assetID  string
	category models.ThreatCategory
}

type draft struct {
	treatment *models.Treatment
	level     models.RiskLevel
	score     float64
}

// Plan groups risks by asset and STRIDE category, aggregates each group,
// and drafts one pending treatment per group. Drafts come back ordered
// worst group first.
func (p *Planner) Plan(input PlanInput) ([]*models.Treatment, error) {
	if input.Analysis == nil {
		return nil, fmt.Errorf("planning treatments: analysis is required")
	}
	if len(input.Risks) == 0 {
		return nil, nil
	}

	assets := make(map[string]*models.Asset, len(input.Assets))
	for _, asset := range input.Assets {
		assets[asset.ID] = asset
	}
	threats := make(map[string]*models.ThreatScenario, len(input.Threats))
	for _, threat := range input.Threats {
		threats[threat.ID] = threat
	}

	groups := make(map[groupKey][]*risk.Value)
	order := make([]groupKey, 0)
	skipped := 0
	for _, value := range input.Risks {
		threat, ok := threats[value.ThreatID]
		if !ok {
			p.logger.Warn("Skipping risk with unknown threat",
				"risk_id", value.ID,
				"threat_id", value.ThreatID)
			skipped++
			continue
		}
		key := groupKey{assetID: value.AssetID, category: threat.Category}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], value)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("planning treatments: none of the %d risks reference a known threat", skipped)
	}

	drafts := make([]draft, 0, len(groups))
	for _, key := range order {
		values := groups[key]
		summary, err := p.aggregator.Aggregate(p.policy, values)
		if err != nil {
			return nil, fmt.Errorf("aggregating %s risks for asset %s: %w", key.category, key.assetID, err)
		}

		d, err := p.draftGroup(input.Analysis.ID, key, assets[key.assetID], values, summary)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft{treatment: d, level: summary.Level, score: summary.Score})
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		if a, b := drafts[i].level.Ordinal(), drafts[j].level.Ordinal(); a != b {
			return a > b
		}
		if drafts[i].score != drafts[j].score {
			return drafts[i].score > drafts[j].score
		}
		return drafts[i].treatment.ID < drafts[j].treatment.ID
	})

	treatments := make([]*models.Treatment, len(drafts))
	for i, d := range drafts {
		treatments[i] = d.treatment
	}
	p.logger.Info("Treatment plan drafted",
		"analysis_id", input.Analysis.ID,
		"groups", len(treatments),
		"skipped_risks", skipped,
		"policy", string(p.policy))
	return treatments, nil
}

// draftGroup builds one treatment for a (asset, category) group.
func (p *Planner) draftGroup(analysisID string, key groupKey, asset *models.Asset, values []*risk.Value, summary *risk.Summary) (*models.Treatment, error) {
	strategies, err := risk.Recommendations(summary.Level)
	if err != nil {
		return nil, fmt.Errorf("advising on %s risk: %w", summary.Level, err)
	}
	strategy := strategies[0]
	decision := decisionFor(strategy)

	worst := values[0]
	for _, v := range values[1:] {
		if v.RiskScore > worst.RiskScore {
			worst = v
		}
	}

	t := models.NewTreatment(analysisID, worst.ID, decision, summary.Level)
	t.Rationale = p.rationale(key, asset, summary, strategy)
	t.ResidualRisk = residualFor(decision, summary.Level)

	if decision != models.DecisionAccept {
		measures := p.knowledge.Top(key.category, maxCountermeasures)
		t.Countermeasures = make([]string, len(measures))
		for i, m := range measures {
			t.Countermeasures[i] = m.Name
		}
		t.EstimatedCost = strategyBaseCost[strategy] * levelCostFactor[summary.Level]
	}

	if err := t.IsValid(); err != nil {
		return nil, fmt.Errorf("drafted invalid treatment for asset %s category %s: %w", key.assetID, key.category, err)
	}
	return t, nil
}

func (p *Planner) rationale(key groupKey, asset *models.Asset, summary *risk.Summary, strategy models.TreatmentStrategy) string {
	subject := key.assetID
	if asset != nil {
		subject = asset.Name
	}
	text := fmt.Sprintf("Aggregated %d %s risk(s) against %s using %s policy: %s (score %.2f); recommended strategy: %s.",
		summary.Count, key.category, subject, summary.Policy, summary.Level, summary.Score, strategy)
	if strategy == models.StrategyTransfer {
		text += " Risk level remains with the accepting party after transfer."
	}
	return text
}

// decisionFor maps an advised strategy onto a recordable decision.
func decisionFor(strategy models.TreatmentStrategy) models.TreatmentDecision {
	switch strategy {
	case models.StrategyMitigate:
		return models.DecisionReduce
	case models.StrategyTransfer:
		return models.DecisionTransfer
	case models.StrategyAvoid:
		return models.DecisionAvoid
	default:
		return models.DecisionAccept
	}
}

// residualFor proposes the residual level a decision should reach.
// Reduction steps one level down, avoidance removes the risk source,
// acceptance and transfer leave the level unchanged.
func residualFor(decision models.TreatmentDecision, original models.RiskLevel) models.RiskLevel {
	switch decision {
	case models.DecisionReduce:
		return lowerLevel(original)
	case models.DecisionAvoid:
		return models.RiskLow
	default:
		return original
	}
}

func lowerLevel(level models.RiskLevel) models.RiskLevel {
	ord := level.Ordinal()
	if ord <= 1 {
		return level
	}
	return models.ValidRiskLevels()[ord-2]
}

// ValidateDecision checks an analyst's (or the planner's) treatment
// against the structural rules and the advisor's recommendations for
// the original risk level.
func ValidateDecision(t *models.Treatment) error {
	if t == nil {
		return fmt.Errorf("validating treatment: treatment is required")
	}
	if err := t.IsValid(); err != nil {
		return fmt.Errorf("treatment %s: %w", t.ID, err)
	}

	advised, err := risk.Recommendations(t.OriginalRisk)
	if err != nil {
		return fmt.Errorf("advising on %s risk: %w", t.OriginalRisk, err)
	}
	for _, strategy := range strategiesFor(t.Decision) {
		for _, a := range advised {
			if a == strategy {
				return nil
			}
		}
	}

	names := make([]string, len(advised))
	for i, a := range advised {
		names[i] = string(a)
	}
	return fmt.Errorf("decision %s is not advised for %s risk (advised: %s)",
		t.Decision, t.OriginalRisk, strings.Join(names, ", "))
}

// strategiesFor maps a decision back onto the strategies that express it.
func strategiesFor(decision models.TreatmentDecision) []models.TreatmentStrategy {
	switch decision {
	case models.DecisionReduce:
		return []models.TreatmentStrategy{models.StrategyMitigate}
	case models.DecisionTransfer:
		return []models.TreatmentStrategy{models.StrategyTransfer}
	case models.DecisionAvoid:
		return []models.TreatmentStrategy{models.StrategyAvoid}
	default:
		return []models.TreatmentStrategy{models.StrategyAccept, models.StrategyMonitor}
	}
}
