package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaraStep is one of the eight steps of the TARA workflow, in pipeline order.
type TaraStep string

// TARA workflow steps.
const (
	StepAssetDefinition   TaraStep = "asset_definition"
	StepImpactRating      TaraStep = "impact_rating"
	StepThreatScenario    TaraStep = "threat_scenario"
	StepAttackPath        TaraStep = "attack_path"
	StepFeasibilityRating TaraStep = "feasibility_rating"
	StepRiskDetermination TaraStep = "risk_determination"
	StepTreatmentDecision TaraStep = "treatment_decision"
	StepGoalSetting       TaraStep = "goal_setting"
)

// OrderedTaraSteps returns the workflow steps in pipeline order.
func OrderedTaraSteps() []TaraStep {
	return []TaraStep{
		StepAssetDefinition,
		StepImpactRating,
		StepThreatScenario,
		StepAttackPath,
		StepFeasibilityRating,
		StepRiskDetermination,
		StepTreatmentDecision,
		StepGoalSetting,
	}
}

// IsValidTaraStep checks if a step name is part of the workflow.
func IsValidTaraStep(s TaraStep) bool {
	return s.Ordinal() != 0
}

// Ordinal returns the 1-based pipeline position of the step, 0 for unknown.
func (s TaraStep) Ordinal() int {
	for i, step := range OrderedTaraSteps() {
		if step == s {
			return i + 1
		}
	}
	return 0
}

func (s TaraStep) String() string { return string(s) }

// AnalysisStatus is the lifecycle state of an analysis.
type AnalysisStatus string

// Analysis statuses.
const (
	AnalysisDraft      AnalysisStatus = "draft"
	AnalysisInProgress AnalysisStatus = "in_progress"
	AnalysisCompleted  AnalysisStatus = "completed"
	AnalysisArchived   AnalysisStatus = "archived"
)

// IsValidAnalysisStatus checks if an analysis status is known.
func IsValidAnalysisStatus(s AnalysisStatus) bool {
	switch s {
	case AnalysisDraft, AnalysisInProgress, AnalysisCompleted, AnalysisArchived:
		return true
	default:
		return false
	}
}

// Analysis is one TARA run over a vehicle system or component.
type Analysis struct {
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	CompletedSteps map[TaraStep]time.Time `json:"completed_steps"`
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Vehicle        string                 `json:"vehicle,omitempty"`
	Scope          string                 `json:"scope,omitempty"`
	Status         AnalysisStatus         `json:"status"`
	CurrentStep    TaraStep               `json:"current_step"`
}

// NewAnalysis creates a draft analysis positioned at the first step.
func NewAnalysis(name, vehicle, scope string) *Analysis {
	now := time.Now()
	return &Analysis{
		ID:             uuid.New().String(),
		Name:           name,
		Vehicle:        vehicle,
		Scope:          scope,
		Status:         AnalysisDraft,
		CurrentStep:    StepAssetDefinition,
		CompletedSteps: make(map[TaraStep]time.Time),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsValid checks required fields and enum membership.
func (a *Analysis) IsValid() error {
	if a.ID == "" {
		return fmt.Errorf("analysis missing required field: id")
	}
	if a.Name == "" {
		return fmt.Errorf("analysis missing required field: name")
	}
	if !IsValidAnalysisStatus(a.Status) {
		return fmt.Errorf("analysis has unknown status: %s", a.Status)
	}
	if !IsValidTaraStep(a.CurrentStep) {
		return fmt.Errorf("analysis has unknown step: %s", a.CurrentStep)
	}
	return nil
}

// StepCompleted reports whether a step has been completed.
func (a *Analysis) StepCompleted(step TaraStep) bool {
	_, ok := a.CompletedSteps[step]
	return ok
}

// CompleteStep marks a step complete. Steps complete strictly in pipeline
// order: all prior steps must already be complete. Completing the final
// step moves the analysis to completed.
func (a *Analysis) CompleteStep(step TaraStep) error {
	ord := step.Ordinal()
	if ord == 0 {
		return fmt.Errorf("unknown step: %s", step)
	}
	for _, prior := range OrderedTaraSteps()[:ord-1] {
		if !a.StepCompleted(prior) {
			return fmt.Errorf("step %s requires prior step %s to be complete", step, prior)
		}
	}
	if a.CompletedSteps == nil {
		a.CompletedSteps = make(map[TaraStep]time.Time)
	}
	now := time.Now()
	a.CompletedSteps[step] = now
	a.UpdatedAt = now

	steps := OrderedTaraSteps()
	if ord == len(steps) {
		a.Status = AnalysisCompleted
		a.CurrentStep = step
		return nil
	}
	a.Status = AnalysisInProgress
	a.CurrentStep = steps[ord]
	return nil
}

// Progress returns completed and total step counts.
func (a *Analysis) Progress() (completed, total int) {
	return len(a.CompletedSteps), len(OrderedTaraSteps())
}
