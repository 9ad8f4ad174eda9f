// Package pipeline runs the TARA workflow steps over an analysis. Steps
// execute in pipeline order; inside a step, work fans out across assets
// or threats on a bounded worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/enrichment"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/treatment"
	"github.com/autogt/autogt/pkg/logger"
)

// Common errors returned by the pipeline.
var (
	ErrStepExists   = errors.New("step already registered")
	ErrUnknownStep  = errors.New("unknown step")
	ErrNoAssets     = errors.New("analysis has no assets")
	ErrStepsPending = errors.New("prior steps incomplete")
	ErrNothingToRun = errors.New("all steps already complete")
)

// Step is one executable TARA workflow step. Implementations must be safe
// for concurrent use; the same value runs for every analysis.
type Step interface {
	// Name returns the workflow step this implementation covers.
	Name() models.TaraStep

	// Run executes the step against the state's analysis. Item-level
	// failures are recorded on the state; Run returns an error only when
	// the step as a whole failed.
	Run(ctx context.Context, st *State) error
}

// Phase marks where in a step's lifecycle an event was emitted.
type Phase string

// Event phases.
const (
	PhaseStarted   Phase = "started"
	PhaseItem      Phase = "item"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseSkipped   Phase = "skipped"
	PhaseDone      Phase = "done"
)

// Event reports pipeline progress. Step is empty for run-level events
// (PhaseDone).
type Event struct {
	Err     error
	Step    models.TaraStep
	Phase   Phase
	Item    string
	Message string
	Current int
	Total   int
}

// ItemError records one failed item within a step.
type ItemError struct {
	Item string
	Err  error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Item, e.Err)
}

// State carries everything a step needs: the analysis under work plus the
// shared service handles. One state serves one step execution, so the
// item tally always describes the current step.
type State struct {
	Analysis *models.Analysis
	DB       *database.DB
	Engine   *risk.Engine
	Policy   risk.Policy
	Enricher *enrichment.Orchestrator
	Planner  *treatment.Planner
	Logger   logger.Logger
	Workers  int

	progress func(Event)
	mu       sync.Mutex
	total    int
	done     int
	failures []ItemError
}

// emit forwards an event to the orchestrator's progress sink.
func (s *State) emit(e Event) {
	if s.progress != nil {
		s.progress(e)
	}
}

// begin resets the item tally and announces the step's item count.
func (s *State) begin(step models.TaraStep, total int) {
	s.mu.Lock()
	s.total = total
	s.done = 0
	s.failures = nil
	s.mu.Unlock()
	s.emit(Event{Step: step, Phase: PhaseStarted, Total: total})
}

// recordItem tallies one completed item and emits its event.
func (s *State) recordItem(step models.TaraStep, item string, err error) {
	s.mu.Lock()
	s.done++
	current := s.done
	total := s.total
	if err != nil {
		s.failures = append(s.failures, ItemError{Item: item, Err: err})
	}
	s.mu.Unlock()

	if err != nil {
		s.Logger.Error("Pipeline item failed", "step", step, "item", item, "error", err)
	}
	s.emit(Event{Step: step, Phase: PhaseItem, Item: item, Current: current, Total: total, Err: err})
}

// Failures returns the failed items of the current step.
func (s *State) Failures() []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ItemError(nil), s.failures...)
}

// Counts returns completed and failed item counts for the current step.
func (s *State) Counts() (done, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, len(s.failures)
}

// runItems fans fn out over items on the state's worker pool, tallying
// each completion on the state. Failed items are recorded and skipped;
// the returned error is non-nil only when every item failed.
func runItems[T any](ctx context.Context, st *State, step models.TaraStep, items []T, label func(T) string, fn func(context.Context, T) error) error {
	st.begin(step, len(items))
	if len(items) == 0 {
		return nil
	}

	workers := st.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan T, len(items))
	results := make(chan ItemError, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers && i < len(items); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if err := ctx.Err(); err != nil {
					results <- ItemError{Item: label(item), Err: err}
					continue
				}
				results <- ItemError{Item: label(item), Err: fn(ctx, item)}
			}
		}()
	}

	for _, item := range items {
		jobs <- item
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for outcome := range results {
		st.recordItem(step, outcome.Item, outcome.Err)
	}

	if failed := st.Failures(); len(failed) == len(items) {
		return fmt.Errorf("step %s failed for all %d items: %w", step, len(items), failed[0].Err)
	}
	return nil
}

// Registry holds step implementations keyed by workflow step.
type Registry struct {
	steps map[models.TaraStep]Step
	mu    sync.RWMutex
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[models.TaraStep]Step)}
}

// Register adds a step implementation. The step's name must be a known
// workflow step and not yet registered.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("step is nil")
	}
	name := step.Name()
	if !models.IsValidTaraStep(name) {
		return fmt.Errorf("%w: %s", ErrUnknownStep, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[name]; exists {
		return fmt.Errorf("%w: %s", ErrStepExists, name)
	}
	r.steps[name] = step
	return nil
}

// Get returns the implementation for a workflow step.
func (r *Registry) Get(name models.TaraStep) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, name)
	}
	return step, nil
}

// Ordered returns the registered steps in pipeline order.
func (r *Registry) Ordered() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	steps := make([]Step, 0, len(r.steps))
	for _, name := range models.OrderedTaraSteps() {
		if step, ok := r.steps[name]; ok {
			steps = append(steps, step)
		}
	}
	return steps
}

// NewDefaultRegistry returns a registry with the built-in implementations
// of steps 2 through 8. Asset definition is input, not an executable step.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, step := range []Step{
		&impactStep{},
		&threatStep{},
		&attackPathStep{},
		&feasibilityStep{},
		&riskStep{},
		&treatmentStep{},
		&goalStep{},
	} {
		if err := r.Register(step); err != nil {
			panic(fmt.Sprintf("registering built-in step: %v", err))
		}
	}
	return r
}
