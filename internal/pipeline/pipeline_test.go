package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/enrichment"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/treatment"
	"github.com/autogt/autogt/pkg/logger"
)

// harness bundles a file-backed database with the services a pipeline
// run needs. The heuristic enrichment driver keeps runs deterministic.
type harness struct {
	db       *database.DB
	orch     *Orchestrator
	analysis *models.Analysis
	log      *logger.MockLogger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "autogt.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	matrix := risk.ISO21434Standard()
	log := logger.NewMockLogger()

	orch := NewOrchestrator(Deps{
		DB:       db,
		Engine:   risk.NewEngine(matrix),
		Policy:   risk.PolicyMaximum,
		Enricher: enrichment.NewOrchestrator(enrichment.NewHeuristicDriver(), &enrichment.AllStrategy{}, nil, nil, log),
		Planner:  treatment.NewPlanner(nil, matrix, risk.PolicyMaximum, log),
		Logger:   log,
		Workers:  2,
	})

	analysis := models.NewAnalysis("Head Unit TARA", "EV-2027", "infotainment domain")
	require.NoError(t, db.CreateAnalysis(context.Background(), analysis))

	return &harness{db: db, orch: orch, analysis: analysis, log: log}
}

func (h *harness) seedAsset(t *testing.T, name string, assetType models.AssetType, criticality models.CriticalityLevel, interfaces ...string) *models.Asset {
	t.Helper()
	asset := models.NewAsset(h.analysis.ID, name, assetType)
	asset.Criticality = criticality
	asset.Interfaces = interfaces
	require.NoError(t, h.db.BatchInsertAssets(context.Background(), []*models.Asset{asset}))
	return asset
}

func (h *harness) reload(t *testing.T) *models.Analysis {
	t.Helper()
	analysis, err := h.db.GetAnalysis(context.Background(), h.analysis.ID)
	require.NoError(t, err)
	return analysis
}

type stubStep struct {
	name models.TaraStep
	err  error
	runs int
}

func (s *stubStep) Name() models.TaraStep { return s.name }

func (s *stubStep) Run(_ context.Context, _ *State) error {
	s.runs++
	return s.err
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&stubStep{name: models.StepImpactRating}))

	err := r.Register(&stubStep{name: models.StepImpactRating})
	require.ErrorIs(t, err, ErrStepExists)

	err = r.Register(&stubStep{name: "reticulation"})
	require.ErrorIs(t, err, ErrUnknownStep)

	require.Error(t, r.Register(nil))

	step, err := r.Get(models.StepImpactRating)
	require.NoError(t, err)
	assert.Equal(t, models.StepImpactRating, step.Name())

	_, err = r.Get(models.StepGoalSetting)
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestRegistryOrdered(t *testing.T) {
	r := NewRegistry()
	// Registered out of order; Ordered must come back in pipeline order.
	require.NoError(t, r.Register(&stubStep{name: models.StepRiskDetermination}))
	require.NoError(t, r.Register(&stubStep{name: models.StepImpactRating}))
	require.NoError(t, r.Register(&stubStep{name: models.StepGoalSetting}))

	var names []models.TaraStep
	for _, step := range r.Ordered() {
		names = append(names, step.Name())
	}
	assert.Equal(t, []models.TaraStep{
		models.StepImpactRating,
		models.StepRiskDetermination,
		models.StepGoalSetting,
	}, names)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	steps := r.Ordered()
	require.Len(t, steps, 7)
	assert.Equal(t, models.StepImpactRating, steps[0].Name())
	assert.Equal(t, models.StepGoalSetting, steps[6].Name())

	// Asset definition is input, not an executable step.
	_, err := r.Get(models.StepAssetDefinition)
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestRunItemsPartialFailure(t *testing.T) {
	st := &State{Logger: logger.NewMockLogger(), Workers: 2}
	items := []int{1, 2, 3, 4}

	err := runItems(context.Background(), st, models.StepImpactRating, items,
		func(i int) string { return fmt.Sprintf("item-%d", i) },
		func(_ context.Context, i int) error {
			if i%2 == 0 {
				return errors.New("even item")
			}
			return nil
		})

	// Failed items are recorded, not fatal.
	require.NoError(t, err)
	done, failed := st.Counts()
	assert.Equal(t, 4, done)
	assert.Equal(t, 2, failed)
	require.Len(t, st.Failures(), 2)
}

func TestRunItemsAllFail(t *testing.T) {
	st := &State{Logger: logger.NewMockLogger(), Workers: 2}

	err := runItems(context.Background(), st, models.StepRiskDetermination, []int{1, 2},
		func(i int) string { return fmt.Sprintf("item-%d", i) },
		func(_ context.Context, _ int) error { return errors.New("boom") })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed for all 2 items")
}

func TestRunItemsEmpty(t *testing.T) {
	st := &State{Logger: logger.NewMockLogger()}

	err := runItems(context.Background(), st, models.StepGoalSetting, nil,
		func(s string) string { return s },
		func(_ context.Context, _ string) error { return errors.New("never called") })

	require.NoError(t, err)
	done, failed := st.Counts()
	assert.Zero(t, done)
	assert.Zero(t, failed)
}

func TestRunItemsEmitsEvents(t *testing.T) {
	var events []Event
	st := &State{
		Logger:   logger.NewMockLogger(),
		Workers:  1,
		progress: func(e Event) { events = append(events, e) },
	}

	err := runItems(context.Background(), st, models.StepAttackPath, []string{"a", "b"},
		func(s string) string { return s },
		func(_ context.Context, _ string) error { return nil })
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, PhaseStarted, events[0].Phase)
	assert.Equal(t, 2, events[0].Total)
	assert.Equal(t, PhaseItem, events[1].Phase)
	assert.Equal(t, 1, events[1].Current)
	assert.Equal(t, PhaseItem, events[2].Phase)
	assert.Equal(t, 2, events[2].Current)
}

func TestRunItemsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := &State{Logger: logger.NewMockLogger(), Workers: 2}
	err := runItems(ctx, st, models.StepImpactRating, []int{1, 2, 3},
		func(i int) string { return fmt.Sprintf("item-%d", i) },
		func(_ context.Context, _ int) error { return nil })

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
