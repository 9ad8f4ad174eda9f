package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/enrichment"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/treatment"
	"github.com/autogt/autogt/pkg/logger"
)

// DefaultWorkers bounds intra-step fan-out when no worker count is
// configured.
const DefaultWorkers = 4

// eventBuffer sizes the progress channel. Consumers that fall behind lose
// events rather than stall the pipeline.
const eventBuffer = 256

// Deps are the services an orchestrator wires into step state.
type Deps struct {
	DB       *database.DB
	Engine   *risk.Engine
	Policy   risk.Policy
	Enricher *enrichment.Orchestrator
	Planner  *treatment.Planner
	Logger   logger.Logger
	Workers  int
}

// Orchestrator executes workflow steps against stored analyses. Steps run
// strictly in pipeline order; the analysis record advances only when a
// step succeeds.
type Orchestrator struct {
	db       *database.DB
	engine   *risk.Engine
	policy   risk.Policy
	enricher *enrichment.Orchestrator
	planner  *treatment.Planner
	registry *Registry
	logger   logger.Logger
	events   chan Event
	workers  int
}

// NewOrchestrator creates an orchestrator over the default step registry.
func NewOrchestrator(deps Deps) *Orchestrator {
	return NewOrchestratorWithRegistry(deps, NewDefaultRegistry())
}

// NewOrchestratorWithRegistry creates an orchestrator over a custom
// registry.
func NewOrchestratorWithRegistry(deps Deps, registry *Registry) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	workers := deps.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		db:       deps.DB,
		engine:   deps.Engine,
		policy:   deps.Policy,
		enricher: deps.Enricher,
		planner:  deps.Planner,
		registry: registry,
		logger:   log,
		events:   make(chan Event, eventBuffer),
		workers:  workers,
	}
}

// Events returns the progress channel. The channel stays open across
// runs; a PhaseDone event marks the end of each run.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// emit delivers an event without ever blocking the pipeline.
func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
	}
}

// StepResult is the outcome of one step in a run.
type StepResult struct {
	Err      error
	Step     models.TaraStep
	Failures []ItemError
	Duration time.Duration
	Items    int
	Failed   int
	Skipped  bool
}

// Report summarizes one pipeline run.
type Report struct {
	StartedAt   time.Time
	CompletedAt time.Time
	RunID       string
	AnalysisID  string
	Steps       []StepResult
}

// Failed reports whether any step in the run failed.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Run executes every incomplete step of the analysis in pipeline order,
// stopping at the first step failure. Already-completed steps are
// skipped, so Run resumes a partially processed analysis.
func (o *Orchestrator) Run(ctx context.Context, analysisID string) (*Report, error) {
	analysis, err := o.prepare(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:      uuid.New().String(),
		AnalysisID: analysis.ID,
		StartedAt:  time.Now(),
	}

	o.logger.Info("Starting pipeline run",
		"run_id", report.RunID,
		"analysis_id", analysis.ID,
		"analysis", analysis.Name,
	)

	var runErr error
	for _, step := range o.registry.Ordered() {
		if analysis.StepCompleted(step.Name()) {
			report.Steps = append(report.Steps, StepResult{Step: step.Name(), Skipped: true})
			o.emit(Event{Step: step.Name(), Phase: PhaseSkipped})
			continue
		}

		result := o.runStep(ctx, analysis, step)
		report.Steps = append(report.Steps, result)
		if result.Err != nil {
			runErr = fmt.Errorf("step %s: %w", result.Step, result.Err)
			break
		}
	}

	report.CompletedAt = time.Now()
	o.emit(Event{Phase: PhaseDone, Err: runErr})

	o.logger.Info("Pipeline run finished",
		"run_id", report.RunID,
		"analysis_id", analysis.ID,
		"status", analysis.Status,
		"duration", report.CompletedAt.Sub(report.StartedAt),
		"failed", runErr != nil,
	)
	return report, runErr
}

// RunNext executes only the next incomplete step and returns its name.
// Returns ErrNothingToRun when the analysis is already complete.
func (o *Orchestrator) RunNext(ctx context.Context, analysisID string) (models.TaraStep, error) {
	analysis, err := o.prepare(ctx, analysisID)
	if err != nil {
		return "", err
	}

	for _, step := range o.registry.Ordered() {
		if analysis.StepCompleted(step.Name()) {
			continue
		}
		result := o.runStep(ctx, analysis, step)
		o.emit(Event{Phase: PhaseDone, Err: result.Err})
		return step.Name(), result.Err
	}
	return "", ErrNothingToRun
}

// RunStep executes one named step. All prior steps must already be
// complete; a completed step may be re-run, which replaces its outputs.
func (o *Orchestrator) RunStep(ctx context.Context, analysisID string, name models.TaraStep) error {
	step, err := o.registry.Get(name)
	if err != nil {
		return err
	}

	analysis, err := o.prepare(ctx, analysisID)
	if err != nil {
		return err
	}

	for _, prior := range models.OrderedTaraSteps()[:name.Ordinal()-1] {
		if !analysis.StepCompleted(prior) {
			return fmt.Errorf("%w: %s requires %s", ErrStepsPending, name, prior)
		}
	}

	result := o.runStep(ctx, analysis, step)
	o.emit(Event{Phase: PhaseDone, Err: result.Err})
	return result.Err
}

// prepare loads the analysis and settles step 1: asset definition is
// complete once the analysis has assets.
func (o *Orchestrator) prepare(ctx context.Context, analysisID string) (*models.Analysis, error) {
	analysis, err := o.db.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if analysis.Status == models.AnalysisArchived {
		return nil, fmt.Errorf("analysis %s is archived", analysisID)
	}

	if !analysis.StepCompleted(models.StepAssetDefinition) {
		assets, err := o.db.ListAssets(ctx, analysis.ID)
		if err != nil {
			return nil, fmt.Errorf("listing assets: %w", err)
		}
		if len(assets) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoAssets, analysisID)
		}
		if err := analysis.CompleteStep(models.StepAssetDefinition); err != nil {
			return nil, err
		}
		if err := o.db.UpdateAnalysis(ctx, analysis); err != nil {
			return nil, fmt.Errorf("updating analysis: %w", err)
		}
	}
	return analysis, nil
}

// runStep executes one step and, on success, marks it complete on the
// analysis record.
func (o *Orchestrator) runStep(ctx context.Context, analysis *models.Analysis, step Step) StepResult {
	name := step.Name()
	st := &State{
		Analysis: analysis,
		DB:       o.db,
		Engine:   o.engine,
		Policy:   o.policy,
		Enricher: o.enricher,
		Planner:  o.planner,
		Logger:   o.logger,
		Workers:  o.workers,
		progress: o.emit,
	}

	o.logger.Info("Running step", "step", name, "analysis_id", analysis.ID)
	start := time.Now()
	err := step.Run(ctx, st)
	done, failed := st.Counts()

	result := StepResult{
		Step:     name,
		Err:      err,
		Items:    done,
		Failed:   failed,
		Failures: st.Failures(),
		Duration: time.Since(start),
	}

	if err != nil {
		o.logger.Error("Step failed", "step", name, "analysis_id", analysis.ID, "error", err)
		o.emit(Event{Step: name, Phase: PhaseFailed, Err: err, Current: done, Total: done})
		return result
	}

	if err := analysis.CompleteStep(name); err != nil {
		result.Err = err
		return result
	}
	if err := o.db.UpdateAnalysis(ctx, analysis); err != nil {
		result.Err = fmt.Errorf("updating analysis: %w", err)
		return result
	}

	o.logger.Info("Step complete",
		"step", name,
		"analysis_id", analysis.ID,
		"items", done,
		"failed", failed,
		"duration", result.Duration,
	)
	o.emit(Event{Step: name, Phase: PhaseCompleted, Current: done, Total: done})
	return result
}
