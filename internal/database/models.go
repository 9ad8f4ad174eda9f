package database

import (
	"github.com/autogt/autogt/internal/models"
)

// StepFlag is a bitmask of completed TARA steps, stored on the analyses
// row so step-based filtering never needs to parse the timestamp JSON.
type StepFlag int

// Step flags in pipeline order.
const (
	FlagAssetDefinition StepFlag = 1 << iota
	FlagImpactRating
	FlagThreatScenario
	FlagAttackPath
	FlagFeasibilityRating
	FlagRiskDetermination
	FlagTreatmentDecision
	FlagGoalSetting
)

// flagFor maps a workflow step to its bit, 0 for unknown steps.
func flagFor(step models.TaraStep) StepFlag {
	ord := step.Ordinal()
	if ord == 0 {
		return 0
	}
	return 1 << (ord - 1)
}

// HasStep checks if a step's bit is set.
func (f StepFlag) HasStep(step models.TaraStep) bool {
	return f&flagFor(step) != 0
}

// AddStep sets a step's bit.
func (f *StepFlag) AddStep(step models.TaraStep) {
	*f |= flagFor(step)
}

// RemoveStep clears a step's bit.
func (f *StepFlag) RemoveStep(step models.TaraStep) {
	*f &^= flagFor(step)
}

// Steps returns the flagged steps in pipeline order.
func (f StepFlag) Steps() []models.TaraStep {
	var steps []models.TaraStep
	for _, step := range models.OrderedTaraSteps() {
		if f.HasStep(step) {
			steps = append(steps, step)
		}
	}
	return steps
}

// StepFlagFromSteps builds a flag from completed step names.
func StepFlagFromSteps(steps []models.TaraStep) StepFlag {
	var flags StepFlag
	for _, step := range steps {
		flags.AddStep(step)
	}
	return flags
}

// AnalysisFilter provides filtering options for listing analyses.
type AnalysisFilter struct {
	Status        *models.AnalysisStatus
	Vehicle       *string
	CompletedStep *models.TaraStep
	Limit         int
	Offset        int
}

// ThreatFilter provides filtering options for querying threat scenarios.
type ThreatFilter struct {
	AssetID  *string
	Category *models.ThreatCategory
	Vector   *models.AttackVector
	Limit    int
	Offset   int
}

// RiskFilter provides filtering options for querying risk values.
type RiskFilter struct {
	AssetID  *string
	ThreatID *string
	Level    *models.RiskLevel
	MinScore *float64
	Limit    int
	Offset   int
}

// TreatmentFilter provides filtering options for querying treatments.
type TreatmentFilter struct {
	Decision *models.TreatmentDecision
	Approval *models.ApprovalStatus
	Limit    int
	Offset   int
}

// RiskCounts is a per-level tally of risk values.
type RiskCounts struct {
	Low      int
	Medium   int
	High     int
	VeryHigh int
	Total    int
}
