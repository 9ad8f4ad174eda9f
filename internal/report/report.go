// Package report assembles the export view of an analysis and renders it
// through pluggable formats. The builder reads everything from the
// database once; formats only turn the assembled report into bytes.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/logger"
)

// Report is the complete export view of one analysis: header, registers,
// and derived statistics. Register rows carry resolved names so formats
// never need the database.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Analysis    Header         `json:"analysis" yaml:"analysis"`
	Assets      []AssetRow     `json:"assets" yaml:"assets"`
	Summaries   []AssetSummary `json:"asset_summaries" yaml:"asset_summaries"`
	Risks       []RiskRow      `json:"risk_register" yaml:"risk_register"`
	Treatments  []TreatmentRow `json:"treatment_register" yaml:"treatment_register"`
	Goals       []GoalRow      `json:"goal_register" yaml:"goal_register"`
	Stats       Stats          `json:"stats" yaml:"stats"`
}

// Header identifies the analysis the report covers.
type Header struct {
	ID             string                `json:"id" yaml:"id"`
	Name           string                `json:"name" yaml:"name"`
	Vehicle        string                `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Scope          string                `json:"scope,omitempty" yaml:"scope,omitempty"`
	Status         models.AnalysisStatus `json:"status" yaml:"status"`
	CurrentStep    models.TaraStep       `json:"current_step" yaml:"current_step"`
	CompletedSteps []StepCompletion      `json:"completed_steps" yaml:"completed_steps"`
	CreatedAt      time.Time             `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at" yaml:"updated_at"`
}

// StepCompletion records when one workflow step finished.
type StepCompletion struct {
	Step        models.TaraStep `json:"step" yaml:"step"`
	CompletedAt time.Time       `json:"completed_at" yaml:"completed_at"`
}

// AssetRow is one asset inventory entry.
type AssetRow struct {
	ID          string                    `json:"id" yaml:"id"`
	Name        string                    `json:"name" yaml:"name"`
	Type        models.AssetType          `json:"type" yaml:"type"`
	Criticality models.CriticalityLevel   `json:"criticality,omitempty" yaml:"criticality,omitempty"`
	Description string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Interfaces  []string                  `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Properties  []models.SecurityProperty `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// AssetSummary is the aggregated risk posture of one asset. Assets without
// calculated risks carry a zero summary with Threats zero.
type AssetSummary struct {
	AssetID     string                  `json:"asset_id" yaml:"asset_id"`
	AssetName   string                  `json:"asset_name" yaml:"asset_name"`
	Criticality models.CriticalityLevel `json:"criticality,omitempty" yaml:"criticality,omitempty"`
	Threats     int                     `json:"threats" yaml:"threats"`
	Level       models.RiskLevel        `json:"level,omitempty" yaml:"level,omitempty"`
	Score       float64                 `json:"score" yaml:"score"`
	Policy      risk.Policy             `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// RiskRow is one risk register entry, most severe rows first.
type RiskRow struct {
	ID         string                 `json:"id" yaml:"id"`
	AssetID    string                 `json:"asset_id" yaml:"asset_id"`
	AssetName  string                 `json:"asset_name" yaml:"asset_name"`
	ThreatID   string                 `json:"threat_id" yaml:"threat_id"`
	ThreatName string                 `json:"threat_name" yaml:"threat_name"`
	Category   models.ThreatCategory  `json:"category,omitempty" yaml:"category,omitempty"`
	Vector     models.AttackVector    `json:"vector,omitempty" yaml:"vector,omitempty"`
	Impact     models.ImpactLevel     `json:"impact" yaml:"impact"`
	Likelihood models.LikelihoodLevel `json:"likelihood" yaml:"likelihood"`
	Level      models.RiskLevel       `json:"level" yaml:"level"`
	Score      float64                `json:"score" yaml:"score"`
	Method     string                 `json:"method" yaml:"method"`
}

// TreatmentRow is one treatment register entry.
type TreatmentRow struct {
	ID              string                   `json:"id" yaml:"id"`
	RiskID          string                   `json:"risk_id" yaml:"risk_id"`
	AssetName       string                   `json:"asset_name" yaml:"asset_name"`
	ThreatName      string                   `json:"threat_name" yaml:"threat_name"`
	Decision        models.TreatmentDecision `json:"decision" yaml:"decision"`
	Rationale       string                   `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Countermeasures []string                 `json:"countermeasures,omitempty" yaml:"countermeasures,omitempty"`
	EstimatedCost   float64                  `json:"estimated_cost" yaml:"estimated_cost"`
	OriginalRisk    models.RiskLevel         `json:"original_risk" yaml:"original_risk"`
	ResidualRisk    models.RiskLevel         `json:"residual_risk" yaml:"residual_risk"`
	Approval        models.ApprovalStatus    `json:"approval" yaml:"approval"`
	Owner           string                   `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// GoalRow is one cybersecurity goal register entry.
type GoalRow struct {
	ID           string                  `json:"id" yaml:"id"`
	AssetName    string                  `json:"asset_name" yaml:"asset_name"`
	Title        string                  `json:"title" yaml:"title"`
	Description  string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Property     models.SecurityProperty `json:"property" yaml:"property"`
	Verification string                  `json:"verification,omitempty" yaml:"verification,omitempty"`
}

// LevelCount is the number of risks at one level.
type LevelCount struct {
	Level models.RiskLevel `json:"level" yaml:"level"`
	Count int              `json:"count" yaml:"count"`
}

// Coverage holds workflow completeness percentages, rounded to one
// decimal.
type Coverage struct {
	AssetsRated        float64 `json:"assets_rated" yaml:"assets_rated"`
	ThreatsRated       float64 `json:"threats_rated" yaml:"threats_rated"`
	RisksTreated       float64 `json:"risks_treated" yaml:"risks_treated"`
	TreatmentsApproved float64 `json:"treatments_approved" yaml:"treatments_approved"`
}

// Stats are the distribution statistics of a report.
type Stats struct {
	Assets     int          `json:"assets" yaml:"assets"`
	Threats    int          `json:"threats" yaml:"threats"`
	Risks      int          `json:"risks" yaml:"risks"`
	Treatments int          `json:"treatments" yaml:"treatments"`
	Goals      int          `json:"goals" yaml:"goals"`
	ByLevel    []LevelCount `json:"by_level" yaml:"by_level"`
	Highest    []RiskRow    `json:"highest_risks" yaml:"highest_risks"`
	Coverage   Coverage     `json:"coverage" yaml:"coverage"`
}

// highestRisks caps the Stats.Highest slice.
const highestRisks = 5

// Builder assembles reports from the database.
type Builder struct {
	db         *database.DB
	aggregator *risk.Aggregator
	policy     risk.Policy
	logger     logger.Logger
}

// NewBuilder creates a report builder. Asset summaries aggregate under the
// given policy and matrix thresholds.
func NewBuilder(db *database.DB, matrix *risk.Matrix, policy risk.Policy, log logger.Logger) *Builder {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Builder{
		db:         db,
		aggregator: risk.NewAggregator(matrix),
		policy:     policy,
		logger:     log,
	}
}

// Build loads and assembles the full report for an analysis. Partially
// worked analyses produce partial reports; only a missing analysis is an
// error.
func (b *Builder) Build(ctx context.Context, analysisID string) (*Report, error) {
	analysis, err := b.db.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}

	assets, err := b.db.ListAssets(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	impacts, err := b.db.ListImpactRatings(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing impact ratings: %w", err)
	}
	threats, err := b.db.ListThreats(ctx, analysisID, database.ThreatFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing threats: %w", err)
	}
	feasibilities, err := b.db.ListFeasibilityRatings(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing feasibility ratings: %w", err)
	}
	values, err := b.db.ListRiskValues(ctx, analysisID, database.RiskFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing risk values: %w", err)
	}
	treatments, err := b.db.ListTreatments(ctx, analysisID, database.TreatmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing treatments: %w", err)
	}
	goals, err := b.db.ListGoals(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}

	assetByID := make(map[string]*models.Asset, len(assets))
	for _, asset := range assets {
		assetByID[asset.ID] = asset
	}
	threatByID := make(map[string]*models.ThreatScenario, len(threats))
	for _, threat := range threats {
		threatByID[threat.ID] = threat
	}
	valueByID := make(map[string]*risk.Value, len(values))
	for _, value := range values {
		valueByID[value.ID] = value
	}

	rep := &Report{
		GeneratedAt: time.Now(),
		Analysis:    headerFor(analysis),
		Assets:      assetRows(assets),
		Summaries:   b.assetSummaries(assets, values),
		Risks:       riskRows(values, assetByID, threatByID),
		Treatments:  treatmentRows(treatments, valueByID, assetByID, threatByID),
		Goals:       goalRows(goals, assetByID),
	}
	rep.Stats = statsFor(rep, threats, impacts, feasibilities, treatments)

	b.logger.Debug("Report assembled",
		"analysis_id", analysisID,
		"assets", len(rep.Assets),
		"risks", len(rep.Risks),
		"treatments", len(rep.Treatments),
		"goals", len(rep.Goals),
	)
	return rep, nil
}

func headerFor(analysis *models.Analysis) Header {
	completions := make([]StepCompletion, 0, len(analysis.CompletedSteps))
	for _, step := range models.OrderedTaraSteps() {
		if at, ok := analysis.CompletedSteps[step]; ok {
			completions = append(completions, StepCompletion{Step: step, CompletedAt: at})
		}
	}
	return Header{
		ID:             analysis.ID,
		Name:           analysis.Name,
		Vehicle:        analysis.Vehicle,
		Scope:          analysis.Scope,
		Status:         analysis.Status,
		CurrentStep:    analysis.CurrentStep,
		CompletedSteps: completions,
		CreatedAt:      analysis.CreatedAt,
		UpdatedAt:      analysis.UpdatedAt,
	}
}

func assetRows(assets []*models.Asset) []AssetRow {
	rows := make([]AssetRow, len(assets))
	for i, asset := range assets {
		rows[i] = AssetRow{
			ID:          asset.ID,
			Name:        asset.Name,
			Type:        asset.Type,
			Criticality: asset.Criticality,
			Description: asset.Description,
			Interfaces:  asset.Interfaces,
			Properties:  asset.Properties,
		}
	}
	return rows
}

// assetSummaries aggregates each asset's risks under the builder's policy.
// Assets without risks still appear so the report shows uncovered targets.
func (b *Builder) assetSummaries(assets []*models.Asset, values []*risk.Value) []AssetSummary {
	byAsset := make(map[string][]*risk.Value)
	for _, value := range values {
		byAsset[value.AssetID] = append(byAsset[value.AssetID], value)
	}

	summaries := make([]AssetSummary, 0, len(assets))
	for _, asset := range assets {
		entry := AssetSummary{
			AssetID:     asset.ID,
			AssetName:   asset.Name,
			Criticality: asset.Criticality,
		}
		if group := byAsset[asset.ID]; len(group) > 0 {
			summary, err := b.aggregator.Aggregate(b.policy, group)
			if err != nil {
				b.logger.Warn("Skipping asset summary", "asset_id", asset.ID, "error", err)
				continue
			}
			entry.Threats = summary.Count
			entry.Level = summary.Level
			entry.Score = summary.Score
			entry.Policy = summary.Policy
		}
		summaries = append(summaries, entry)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Score != summaries[j].Score {
			return summaries[i].Score > summaries[j].Score
		}
		return summaries[i].AssetName < summaries[j].AssetName
	})
	return summaries
}

// riskRows resolves names onto the severity-ordered values.
func riskRows(values []*risk.Value, assetByID map[string]*models.Asset, threatByID map[string]*models.ThreatScenario) []RiskRow {
	rows := make([]RiskRow, len(values))
	for i, value := range values {
		row := RiskRow{
			ID:         value.ID,
			AssetID:    value.AssetID,
			AssetName:  value.AssetID,
			ThreatID:   value.ThreatID,
			ThreatName: value.ThreatID,
			Impact:     value.ImpactLevel,
			Likelihood: value.LikelihoodLevel,
			Level:      value.RiskLevel,
			Score:      value.RiskScore,
			Method:     value.Method,
		}
		if asset := assetByID[value.AssetID]; asset != nil {
			row.AssetName = asset.Name
		}
		if threat := threatByID[value.ThreatID]; threat != nil {
			row.ThreatName = threat.Name
			row.Category = threat.Category
			row.Vector = threat.Vector
		}
		rows[i] = row
	}
	return rows
}

func treatmentRows(treatments []*models.Treatment, valueByID map[string]*risk.Value, assetByID map[string]*models.Asset, threatByID map[string]*models.ThreatScenario) []TreatmentRow {
	rows := make([]TreatmentRow, len(treatments))
	for i, t := range treatments {
		row := TreatmentRow{
			ID:              t.ID,
			RiskID:          t.RiskID,
			Decision:        t.Decision,
			Rationale:       t.Rationale,
			Countermeasures: t.Countermeasures,
			EstimatedCost:   t.EstimatedCost,
			OriginalRisk:    t.OriginalRisk,
			ResidualRisk:    t.ResidualRisk,
			Approval:        t.Approval,
			Owner:           t.Owner,
		}
		if value := valueByID[t.RiskID]; value != nil {
			if asset := assetByID[value.AssetID]; asset != nil {
				row.AssetName = asset.Name
			}
			if threat := threatByID[value.ThreatID]; threat != nil {
				row.ThreatName = threat.Name
			}
		}
		rows[i] = row
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OriginalRisk.Ordinal() != rows[j].OriginalRisk.Ordinal() {
			return rows[i].OriginalRisk.Ordinal() > rows[j].OriginalRisk.Ordinal()
		}
		return rows[i].AssetName < rows[j].AssetName
	})
	return rows
}

func goalRows(goals []*models.CybersecurityGoal, assetByID map[string]*models.Asset) []GoalRow {
	rows := make([]GoalRow, len(goals))
	for i, goal := range goals {
		row := GoalRow{
			ID:           goal.ID,
			AssetName:    goal.AssetID,
			Title:        goal.Title,
			Description:  goal.Description,
			Property:     goal.Property,
			Verification: goal.Verification,
		}
		if asset := assetByID[goal.AssetID]; asset != nil {
			row.AssetName = asset.Name
		}
		rows[i] = row
	}
	return rows
}

func statsFor(rep *Report, threats []*models.ThreatScenario, impacts []*models.ImpactRating, feasibilities []*models.FeasibilityRating, treatments []*models.Treatment) Stats {
	byLevel := make(map[models.RiskLevel]int)
	for _, row := range rep.Risks {
		byLevel[row.Level]++
	}

	levels := models.ValidRiskLevels()
	counts := make([]LevelCount, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		counts = append(counts, LevelCount{Level: levels[i], Count: byLevel[levels[i]]})
	}

	highest := rep.Risks
	if len(highest) > highestRisks {
		highest = highest[:highestRisks]
	}

	treated := make(map[string]bool, len(treatments))
	approved := 0
	for _, t := range treatments {
		treated[t.RiskID] = true
		if t.Approval == models.ApprovalApproved {
			approved++
		}
	}

	return Stats{
		Assets:     len(rep.Assets),
		Threats:    len(threats),
		Risks:      len(rep.Risks),
		Treatments: len(treatments),
		Goals:      len(rep.Goals),
		ByLevel:    counts,
		Highest:    highest,
		Coverage: Coverage{
			AssetsRated:        percent(len(impacts), len(rep.Assets)),
			ThreatsRated:       percent(len(feasibilities), len(threats)),
			RisksTreated:       percent(len(treated), len(rep.Risks)),
			TreatmentsApproved: percent(approved, len(treatments)),
		},
	}
}

// percent returns part of whole as a percentage with one decimal, 0 for an
// empty whole.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
