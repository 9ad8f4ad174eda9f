package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/enrichment"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/treatment"
)

func assetLabel(a *models.Asset) string           { return a.Name }
func threatLabel(t *models.ThreatScenario) string { return t.Name }

// labelText renders an enum token for prose: underscores become spaces.
func labelText[T ~string](v T) string {
	return strings.ReplaceAll(string(v), "_", " ")
}

// impactStep rates the damage potential of every asset. Ratings already
// present, imported or entered by an analyst, are left untouched; the
// rest get a heuristic grading from criticality and asset type.
type impactStep struct{}

func (s *impactStep) Name() models.TaraStep { return models.StepImpactRating }

func (s *impactStep) Run(ctx context.Context, st *State) error {
	assets, err := st.DB.ListAssets(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAssets, st.Analysis.ID)
	}

	return runItems(ctx, st, s.Name(), assets, assetLabel, func(ctx context.Context, asset *models.Asset) error {
		_, err := st.DB.GetImpactRating(ctx, asset.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrNoRating) {
			return err
		}

		rating, err := models.NewImpactRating(st.Analysis.ID, asset.ID, heuristicImpactCategories(asset))
		if err != nil {
			return err
		}
		rating.Rationale = fmt.Sprintf("Derived from %s criticality of %s asset %s",
			criticalityText(asset.Criticality), labelText(asset.Type), asset.Name)
		return st.DB.SaveImpactRating(ctx, rating)
	})
}

// heuristicImpactCategories grades the four damage dimensions from
// criticality and asset type. Safety tracks criticality for assets in the
// vehicle control path; privacy tracks it for data and people.
func heuristicImpactCategories(asset *models.Asset) map[models.ImpactCategory]models.ImpactLevel {
	base := impactForCriticality(asset.Criticality)
	categories := map[models.ImpactCategory]models.ImpactLevel{
		models.CategorySafety:      base,
		models.CategoryFinancial:   base,
		models.CategoryOperational: base,
		models.CategoryPrivacy:     lowerImpact(base),
	}

	switch asset.Type {
	case models.AssetData, models.AssetHuman:
		categories[models.CategorySafety] = lowerImpact(base)
		categories[models.CategoryPrivacy] = base
	case models.AssetPhysical:
		categories[models.CategorySafety] = lowerImpact(base)
	}
	return categories
}

// impactForCriticality maps criticality to a base impact level. Unrated
// assets are assumed moderate rather than negligible.
func impactForCriticality(c models.CriticalityLevel) models.ImpactLevel {
	switch c {
	case models.CriticalityCritical:
		return models.ImpactSevere
	case models.CriticalityHigh:
		return models.ImpactMajor
	case models.CriticalityMedium:
		return models.ImpactModerate
	case models.CriticalityLow:
		return models.ImpactNegligible
	default:
		return models.ImpactModerate
	}
}

func lowerImpact(level models.ImpactLevel) models.ImpactLevel {
	levels := models.ValidImpactLevels()
	for i, l := range levels {
		if l == level && i > 0 {
			return levels[i-1]
		}
	}
	return levels[0]
}

func criticalityText(c models.CriticalityLevel) string {
	if c == "" {
		return "unrated"
	}
	return string(c)
}

// threatStep generates candidate threat scenarios through the enrichment
// layer and persists them. The enrichment strategy decides which assets
// are covered; per-asset failures inside the run are recorded here.
type threatStep struct{}

func (s *threatStep) Name() models.TaraStep { return models.StepThreatScenario }

func (s *threatStep) Run(ctx context.Context, st *State) error {
	if st.Enricher == nil {
		return fmt.Errorf("threat generation requires an enrichment driver")
	}

	assets, err := st.DB.ListAssets(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("%w: %s", ErrNoAssets, st.Analysis.ID)
	}

	ratings, err := st.DB.ListImpactRatings(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing impact ratings: %w", err)
	}
	ratingByAsset := make(map[string]*models.ImpactRating, len(ratings))
	for _, rating := range ratings {
		ratingByAsset[rating.AssetID] = rating
	}

	items := make([]enrichment.Item, len(assets))
	for i, asset := range assets {
		items[i] = enrichment.Item{Asset: asset, Impact: ratingByAsset[asset.ID]}
	}

	// Strategies are deterministic, so selecting here only sizes the
	// progress tally; the enricher repeats the selection itself.
	selected := st.Enricher.Strategy().Select(items)
	st.begin(s.Name(), len(selected))

	result, err := st.Enricher.SuggestThreats(ctx, st.Analysis, items, enrichment.Options{Vehicle: st.Analysis.Vehicle})
	if err != nil {
		return fmt.Errorf("generating threat scenarios: %w", err)
	}

	source := models.SourceAssistant
	if st.Enricher.Driver().Name() == "heuristic" {
		source = models.SourceHeuristic
	}

	var threats []*models.ThreatScenario
	for _, enriched := range result.Enrichments {
		if enriched.Err != "" {
			st.recordItem(s.Name(), enriched.AssetName, errors.New(enriched.Err))
			continue
		}
		for _, suggestion := range enriched.Suggestions {
			threats = append(threats, threatFromSuggestion(st.Analysis.ID, enriched.AssetID, suggestion, source))
		}
		st.recordItem(s.Name(), enriched.AssetName, nil)
	}

	if len(threats) == 0 {
		return fmt.Errorf("no threat scenarios generated for analysis %s", st.Analysis.ID)
	}
	if err := st.DB.BatchInsertThreats(ctx, threats); err != nil {
		return fmt.Errorf("saving threat scenarios: %w", err)
	}

	st.Logger.Info("Threat scenarios generated",
		"analysis_id", st.Analysis.ID,
		"assets", len(selected),
		"threats", len(threats),
		"source", source,
	)
	return nil
}

func threatFromSuggestion(analysisID, assetID string, s enrichment.ThreatSuggestion, source models.ThreatSource) *models.ThreatScenario {
	t := models.NewThreatScenario(analysisID, assetID, s.Name, s.Category)
	t.Vector = s.Vector
	t.Property = s.Property
	t.DamageScenario = s.DamageScenario
	t.Description = s.Rationale
	t.Source = source
	return t
}

// attackPathStep derives one basic entry-point-to-target path per threat
// from the threat's vector and the asset's interfaces. Analyst-edited
// paths share the same derived ID and are replaced on re-run.
type attackPathStep struct{}

func (s *attackPathStep) Name() models.TaraStep { return models.StepAttackPath }

func (s *attackPathStep) Run(ctx context.Context, st *State) error {
	threats, assetByID, err := loadThreatsAndAssets(ctx, st)
	if err != nil {
		return err
	}

	return runItems(ctx, st, s.Name(), threats, threatLabel, func(ctx context.Context, threat *models.ThreatScenario) error {
		path := derivePath(st.Analysis.ID, threat, assetByID[threat.AssetID])
		if err := path.IsValid(); err != nil {
			return err
		}
		return st.DB.SaveAttackPath(ctx, path)
	})
}

// Interface keywords that make plausible entry points per vector.
var vectorInterfaceHints = map[models.AttackVector][]string{
	models.VectorNetwork:         {"cellular", "telematics", "ethernet", "wifi", "wi-fi", "v2x", "internet"},
	models.VectorAdjacentNetwork: {"bluetooth", "wifi", "wi-fi", "nfc", "keyless", "tpms"},
	models.VectorLocal:           {"obd", "usb", "diagnostic", "uds", "debug"},
	models.VectorPhysical:        {"jtag", "debug", "connector", "flash", "sensor"},
}

var vectorFallbackEntry = map[models.AttackVector]string{
	models.VectorNetwork:         "remote network interface",
	models.VectorAdjacentNetwork: "short-range wireless interface",
	models.VectorLocal:           "local diagnostic port",
	models.VectorPhysical:        "physical access point",
}

// entryPointFor picks the asset interface best matching the vector, the
// first interface otherwise, and a generic vector entry when the asset
// exposes none.
func entryPointFor(vector models.AttackVector, asset *models.Asset) string {
	if asset != nil {
		for _, hint := range vectorInterfaceHints[vector] {
			for _, iface := range asset.Interfaces {
				if strings.Contains(strings.ToLower(iface), hint) {
					return iface
				}
			}
		}
		if len(asset.Interfaces) > 0 {
			return asset.Interfaces[0]
		}
	}
	return vectorFallbackEntry[vector]
}

func prerequisitesFor(vector models.AttackVector) []string {
	switch vector {
	case models.VectorNetwork:
		return []string{"Remote connectivity to the vehicle"}
	case models.VectorAdjacentNetwork:
		return []string{"Attacker within radio range of the vehicle"}
	case models.VectorLocal:
		return []string{"Access to the cabin or a diagnostic connector"}
	case models.VectorPhysical:
		return []string{"Physical access to the target component"}
	default:
		return nil
	}
}

// categoryObjective phrases the attacker's intermediate goal per STRIDE
// category.
func categoryObjective(category models.ThreatCategory, assetName string) string {
	switch category {
	case models.ThreatSpoofing:
		return fmt.Sprintf("Impersonate a legitimate communication partner of %s", assetName)
	case models.ThreatTampering:
		return fmt.Sprintf("Modify data or code handled by %s", assetName)
	case models.ThreatRepudiation:
		return fmt.Sprintf("Erase or forge evidence of actions on %s", assetName)
	case models.ThreatInfoDisclosure:
		return fmt.Sprintf("Extract protected data from %s", assetName)
	case models.ThreatDenialOfService:
		return fmt.Sprintf("Flood or disable %s", assetName)
	case models.ThreatElevationPrivilege:
		return fmt.Sprintf("Escalate to privileged control of %s", assetName)
	default:
		return fmt.Sprintf("Compromise %s", assetName)
	}
}

func derivePath(analysisID string, threat *models.ThreatScenario, asset *models.Asset) *models.AttackPath {
	vector := threat.Vector
	if !models.IsValidAttackVector(vector) {
		vector = models.VectorLocal
	}

	assetName := threat.AssetID
	if asset != nil {
		assetName = asset.Name
	}

	entry := entryPointFor(vector, asset)
	final := threat.DamageScenario
	if final == "" {
		property := threat.Property
		if property == "" {
			property = models.PropertyIntegrity
		}
		final = fmt.Sprintf("Compromise the %s of %s", labelText(property), assetName)
	}

	steps := []string{
		fmt.Sprintf("Reach %s via the %s vector", entry, labelText(vector)),
		categoryObjective(threat.Category, assetName),
		final,
	}

	path := models.NewAttackPath(analysisID, threat.ID, entry, vector, steps)
	path.Prerequisites = prerequisitesFor(vector)
	return path
}

// feasibilityStep grades attack feasibility for every threat that has no
// rating yet. Imported and manual ratings win; defaults come from the
// attack vector hardened by the target's criticality.
type feasibilityStep struct{}

func (s *feasibilityStep) Name() models.TaraStep { return models.StepFeasibilityRating }

func (s *feasibilityStep) Run(ctx context.Context, st *State) error {
	threats, assetByID, err := loadThreatsAndAssets(ctx, st)
	if err != nil {
		return err
	}

	return runItems(ctx, st, s.Name(), threats, threatLabel, func(ctx context.Context, threat *models.ThreatScenario) error {
		_, err := st.DB.GetFeasibilityRating(ctx, threat.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrNoRating) {
			return err
		}

		rating, err := defaultFeasibility(st.Analysis.ID, threat, assetByID[threat.AssetID])
		if err != nil {
			return err
		}
		return st.DB.SaveFeasibilityRating(ctx, rating)
	})
}

// Factor ladders ordered easiest to hardest for the attacker.
var (
	timeLadder        = []models.ElapsedTime{models.TimeOneDay, models.TimeOneWeek, models.TimeOneMonth, models.TimeSixMonths, models.TimeBeyondSixMonths}
	expertiseLadder   = []models.Expertise{models.ExpertiseLayperson, models.ExpertiseProficient, models.ExpertiseExpert, models.ExpertiseMultipleExperts}
	knowledgeLadder   = []models.Knowledge{models.KnowledgePublic, models.KnowledgeRestricted, models.KnowledgeConfidential, models.KnowledgeStrictlySecret}
	opportunityLadder = []models.Opportunity{models.OpportunityUnlimited, models.OpportunityEasy, models.OpportunityModerate, models.OpportunityDifficult}
	equipmentLadder   = []models.Equipment{models.EquipmentStandard, models.EquipmentSpecialized, models.EquipmentBespoke, models.EquipmentMultipleBespoke}
)

// vectorBaseline indexes into the factor ladders per vector, in the order
// time, expertise, knowledge, opportunity, equipment. A remote network
// attack is quick and cheap; a physical attack is slow and tooled.
var vectorBaseline = map[models.AttackVector][5]int{
	models.VectorNetwork:         {1, 1, 0, 0, 0},
	models.VectorAdjacentNetwork: {1, 1, 1, 1, 0},
	models.VectorLocal:           {2, 1, 1, 2, 1},
	models.VectorPhysical:        {3, 2, 2, 3, 1},
}

// hardenBy shifts the time, expertise, and knowledge baselines for
// well-protected assets.
func hardenBy(c models.CriticalityLevel) int {
	switch c {
	case models.CriticalityCritical:
		return 2
	case models.CriticalityHigh:
		return 1
	default:
		return 0
	}
}

func pick[T any](ladder []T, i int) T {
	if i < 0 {
		i = 0
	}
	if i >= len(ladder) {
		i = len(ladder) - 1
	}
	return ladder[i]
}

func defaultFeasibility(analysisID string, threat *models.ThreatScenario, asset *models.Asset) (*models.FeasibilityRating, error) {
	vector := threat.Vector
	if _, ok := vectorBaseline[vector]; !ok {
		vector = models.VectorLocal
	}
	base := vectorBaseline[vector]

	shift := 0
	criticality := models.CriticalityLevel("")
	if asset != nil {
		shift = hardenBy(asset.Criticality)
		criticality = asset.Criticality
	}

	rating, err := models.NewFeasibilityRating(analysisID, threat.ID,
		pick(timeLadder, base[0]+shift),
		pick(expertiseLadder, base[1]+shift),
		pick(knowledgeLadder, base[2]+shift),
		pick(opportunityLadder, base[3]),
		pick(equipmentLadder, base[4]),
	)
	if err != nil {
		return nil, err
	}
	rating.Rationale = fmt.Sprintf("Default grading for a %s attack against a %s-criticality asset",
		labelText(vector), criticalityText(criticality))
	return rating, nil
}

// riskStep calculates one risk value per threat from the stored impact
// and feasibility ratings, then logs the per-asset aggregate under the
// configured policy.
type riskStep struct{}

func (s *riskStep) Name() models.TaraStep { return models.StepRiskDetermination }

func (s *riskStep) Run(ctx context.Context, st *State) error {
	threats, err := st.DB.ListThreats(ctx, st.Analysis.ID, database.ThreatFilter{})
	if err != nil {
		return fmt.Errorf("listing threats: %w", err)
	}
	if len(threats) == 0 {
		return fmt.Errorf("analysis %s has no threat scenarios", st.Analysis.ID)
	}

	impacts, err := st.DB.ListImpactRatings(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing impact ratings: %w", err)
	}
	impactByAsset := make(map[string]*models.ImpactRating, len(impacts))
	for _, rating := range impacts {
		impactByAsset[rating.AssetID] = rating
	}

	feasibilities, err := st.DB.ListFeasibilityRatings(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing feasibility ratings: %w", err)
	}
	feasibilityByThreat := make(map[string]*models.FeasibilityRating, len(feasibilities))
	for _, rating := range feasibilities {
		feasibilityByThreat[rating.ThreatID] = rating
	}

	err = runItems(ctx, st, s.Name(), threats, threatLabel, func(ctx context.Context, threat *models.ThreatScenario) error {
		value, err := st.Engine.Calculate(impactByAsset[threat.AssetID], feasibilityByThreat[threat.ID])
		if err != nil {
			return err
		}
		return st.DB.SaveRiskValue(ctx, value)
	})
	if err != nil {
		return err
	}

	s.logAssetSummaries(ctx, st)
	return nil
}

// logAssetSummaries aggregates the stored risks per asset so the run log
// carries the combined posture alongside the individual values.
func (s *riskStep) logAssetSummaries(ctx context.Context, st *State) {
	values, err := st.DB.ListRiskValues(ctx, st.Analysis.ID, database.RiskFilter{})
	if err != nil {
		st.Logger.Warn("Skipping asset summaries", "analysis_id", st.Analysis.ID, "error", err)
		return
	}

	byAsset := make(map[string][]*risk.Value)
	for _, value := range values {
		byAsset[value.AssetID] = append(byAsset[value.AssetID], value)
	}

	aggregator := risk.NewAggregator(st.Engine.Matrix())
	for assetID, group := range byAsset {
		summary, err := aggregator.Aggregate(st.Policy, group)
		if err != nil {
			st.Logger.Warn("Aggregation failed", "asset_id", assetID, "error", err)
			continue
		}
		st.Logger.Info("Asset risk summary",
			"asset_id", assetID,
			"level", summary.Level,
			"score", summary.Score,
			"threats", summary.Count,
			"policy", summary.Policy,
		)
	}
}

// treatmentStep drafts pending treatments from the assessed risks via the
// planner. Drafts await analyst decision and approval.
type treatmentStep struct{}

func (s *treatmentStep) Name() models.TaraStep { return models.StepTreatmentDecision }

func (s *treatmentStep) Run(ctx context.Context, st *State) error {
	if st.Planner == nil {
		return fmt.Errorf("treatment drafting requires a planner")
	}

	risks, err := st.DB.ListRiskValues(ctx, st.Analysis.ID, database.RiskFilter{})
	if err != nil {
		return fmt.Errorf("listing risks: %w", err)
	}
	if len(risks) == 0 {
		return fmt.Errorf("analysis %s has no calculated risks", st.Analysis.ID)
	}

	assets, err := st.DB.ListAssets(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	threats, err := st.DB.ListThreats(ctx, st.Analysis.ID, database.ThreatFilter{})
	if err != nil {
		return fmt.Errorf("listing threats: %w", err)
	}

	drafts, err := st.Planner.Plan(treatment.PlanInput{
		Analysis: st.Analysis,
		Assets:   assets,
		Threats:  threats,
		Risks:    risks,
	})
	if err != nil {
		return fmt.Errorf("planning treatments: %w", err)
	}

	return runItems(ctx, st, s.Name(), drafts,
		func(t *models.Treatment) string { return fmt.Sprintf("risk %s", t.RiskID) },
		func(ctx context.Context, t *models.Treatment) error {
			return st.DB.SaveTreatment(ctx, t)
		})
}

// goalStep derives cybersecurity goals from the treatments that commit to
// countering a risk. Accepted risks and rejected treatments produce no
// goal.
type goalStep struct{}

func (s *goalStep) Name() models.TaraStep { return models.StepGoalSetting }

func (s *goalStep) Run(ctx context.Context, st *State) error {
	treatments, err := st.DB.ListTreatments(ctx, st.Analysis.ID, database.TreatmentFilter{})
	if err != nil {
		return fmt.Errorf("listing treatments: %w", err)
	}
	if len(treatments) == 0 {
		return fmt.Errorf("analysis %s has no treatments", st.Analysis.ID)
	}

	risks, err := st.DB.ListRiskValues(ctx, st.Analysis.ID, database.RiskFilter{})
	if err != nil {
		return fmt.Errorf("listing risks: %w", err)
	}
	riskByID := make(map[string]*risk.Value, len(risks))
	for _, value := range risks {
		riskByID[value.ID] = value
	}

	threats, err := st.DB.ListThreats(ctx, st.Analysis.ID, database.ThreatFilter{})
	if err != nil {
		return fmt.Errorf("listing threats: %w", err)
	}
	threatByID := make(map[string]*models.ThreatScenario, len(threats))
	for _, threat := range threats {
		threatByID[threat.ID] = threat
	}

	assets, err := st.DB.ListAssets(ctx, st.Analysis.ID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	assetByID := make(map[string]*models.Asset, len(assets))
	for _, asset := range assets {
		assetByID[asset.ID] = asset
	}

	var eligible []*models.Treatment
	for _, t := range treatments {
		if t.Decision == models.DecisionAccept || t.Approval == models.ApprovalRejected {
			continue
		}
		eligible = append(eligible, t)
	}

	return runItems(ctx, st, s.Name(), eligible,
		func(t *models.Treatment) string { return fmt.Sprintf("treatment %s", t.ID) },
		func(ctx context.Context, t *models.Treatment) error {
			goal, err := goalFromTreatment(st.Analysis.ID, t, riskByID, threatByID, assetByID)
			if err != nil {
				return err
			}
			return st.DB.SaveGoal(ctx, goal)
		})
}

func goalFromTreatment(analysisID string, t *models.Treatment, riskByID map[string]*risk.Value, threatByID map[string]*models.ThreatScenario, assetByID map[string]*models.Asset) (*models.CybersecurityGoal, error) {
	value := riskByID[t.RiskID]
	if value == nil {
		return nil, fmt.Errorf("treatment %s references unknown risk %s", t.ID, t.RiskID)
	}

	property := models.PropertyIntegrity
	against := "attack"
	if threat := threatByID[value.ThreatID]; threat != nil {
		if threat.Property != "" {
			property = threat.Property
		}
		against = labelText(threat.Category)
	}

	assetName := value.AssetID
	if asset := assetByID[value.AssetID]; asset != nil {
		assetName = asset.Name
	}

	goal := models.NewCybersecurityGoal(analysisID, value.AssetID, t.ID,
		fmt.Sprintf("Protect %s against %s", assetName, against), property)
	goal.Description = fmt.Sprintf("Preserve the %s of %s.", labelText(property), assetName)
	if len(t.Countermeasures) > 0 {
		goal.Description += fmt.Sprintf(" Planned countermeasures: %s.", strings.Join(t.Countermeasures, ", "))
	}
	goal.Verification = verificationFor(t.Decision)
	return goal, nil
}

func verificationFor(decision models.TreatmentDecision) string {
	switch decision {
	case models.DecisionReduce:
		return "Penetration test against the implemented countermeasures"
	case models.DecisionTransfer:
		return "Review of the contractual transfer of responsibility"
	case models.DecisionAvoid:
		return "Design review confirming the attack surface was removed"
	default:
		return "Requirements review"
	}
}

// loadThreatsAndAssets is shared by the path and feasibility steps, which
// both walk threats with their target assets in hand.
func loadThreatsAndAssets(ctx context.Context, st *State) ([]*models.ThreatScenario, map[string]*models.Asset, error) {
	threats, err := st.DB.ListThreats(ctx, st.Analysis.ID, database.ThreatFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing threats: %w", err)
	}
	if len(threats) == 0 {
		return nil, nil, fmt.Errorf("analysis %s has no threat scenarios", st.Analysis.ID)
	}

	assets, err := st.DB.ListAssets(ctx, st.Analysis.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing assets: %w", err)
	}
	assetByID := make(map[string]*models.Asset, len(assets))
	for _, asset := range assets {
		assetByID[asset.ID] = asset
	}
	return threats, assetByID, nil
}
