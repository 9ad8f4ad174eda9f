package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

func testBundle(t *testing.T, name, vehicle string, createdAt time.Time) *Bundle {
	t.Helper()

	analysis := models.NewAnalysis(name, vehicle, "test scope")
	analysis.CreatedAt = createdAt

	asset := models.NewAsset(analysis.ID, "Telematics ECU", models.AssetHardware)
	threat := models.NewThreatScenario(analysis.ID, asset.ID, "Remote exploit", models.ThreatElevationPrivilege)

	matrix := risk.ISO21434Standard()
	score, err := matrix.Score(models.ImpactMajor, models.LikelihoodHigh)
	require.NoError(t, err)
	level, err := matrix.Level(models.ImpactMajor, models.LikelihoodHigh)
	require.NoError(t, err)
	value := &risk.Value{
		ID:              risk.GenerateRiskID(analysis.ID, threat.ID, matrix.Method()),
		AnalysisID:      analysis.ID,
		AssetID:         asset.ID,
		ThreatID:        threat.ID,
		ImpactLevel:     models.ImpactMajor,
		LikelihoodLevel: models.LikelihoodHigh,
		RiskLevel:       level,
		RiskScore:       score,
		Method:          matrix.Method(),
	}

	treatment := models.NewTreatment(analysis.ID, value.ID, models.DecisionReduce, level)
	goal := models.NewCybersecurityGoal(analysis.ID, asset.ID, treatment.ID,
		"Enforce secure boot", models.PropertyIntegrity)

	return &Bundle{
		Analysis:   analysis,
		Assets:     []*models.Asset{asset},
		Threats:    []*models.ThreatScenario{threat},
		Risks:      []*risk.Value{value},
		Treatments: []*models.Treatment{treatment},
		Goals:      []*models.CybersecurityGoal{goal},
	}
}

func TestSaveAndLoadBundle(t *testing.T) {
	storage := New(t.TempDir())
	bundle := testBundle(t, "Head Unit TARA", "EV-2027", time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC))

	dir, err := storage.SaveBundle(bundle)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	for _, name := range []string{FileAnalysis, FileAssets, FileThreats, FileRisks, FileTreatments, FileGoals, FileMetadata} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	loaded, err := storage.LoadBundle(dir)
	require.NoError(t, err)

	assert.Equal(t, bundle.Analysis.ID, loaded.Analysis.ID)
	assert.Equal(t, bundle.Analysis.Name, loaded.Analysis.Name)
	require.Len(t, loaded.Assets, 1)
	assert.Equal(t, bundle.Assets[0].ID, loaded.Assets[0].ID)
	require.Len(t, loaded.Threats, 1)
	require.Len(t, loaded.Risks, 1)
	assert.Equal(t, models.RiskHigh, loaded.Risks[0].RiskLevel)
	assert.InDelta(t, 0.70, loaded.Risks[0].RiskScore, 1e-9)
	require.Len(t, loaded.Treatments, 1)
	require.Len(t, loaded.Goals, 1)
}

func TestAnalysisDirNaming(t *testing.T) {
	storage := New("/data/analyses")
	analysis := models.NewAnalysis("Gateway TARA", "EV-2028", "")
	analysis.ID = "0f47ac10-58cc-4372-a567-0e02b2c3d479"
	analysis.CreatedAt = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	dir := storage.AnalysisDir(analysis)
	assert.Equal(t, filepath.Join("/data/analyses", "20260314-103000-0f47ac10"), dir)
}

func TestSaveBundleRequiresAnalysis(t *testing.T) {
	storage := New(t.TempDir())

	_, err := storage.SaveBundle(nil)
	assert.Error(t, err)

	_, err = storage.SaveBundle(&Bundle{})
	assert.Error(t, err)
}

func TestLoadBundleMissing(t *testing.T) {
	storage := New(t.TempDir())

	_, err := storage.LoadBundle(filepath.Join(storage.BaseDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadBundleToleratesMissingArtifacts(t *testing.T) {
	storage := New(t.TempDir())
	bundle := testBundle(t, "Partial", "EV-2027", time.Now().UTC())

	dir, err := storage.SaveBundle(bundle)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, FileRisks)))
	require.NoError(t, os.Remove(filepath.Join(dir, FileGoals)))

	loaded, err := storage.LoadBundle(dir)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Analysis)
	assert.Empty(t, loaded.Risks)
	assert.Empty(t, loaded.Goals)
	assert.Len(t, loaded.Assets, 1)
}

func TestGetAnalysisInfo(t *testing.T) {
	storage := New(t.TempDir())
	bundle := testBundle(t, "Head Unit TARA", "EV-2027", time.Now().UTC())

	dir, err := storage.SaveBundle(bundle)
	require.NoError(t, err)

	info, err := storage.GetAnalysisInfo(dir)
	require.NoError(t, err)

	assert.Equal(t, bundle.Analysis.ID, info.AnalysisID)
	assert.Equal(t, "Head Unit TARA", info.Name)
	assert.Equal(t, "EV-2027", info.Vehicle)
	assert.Equal(t, models.AnalysisDraft, info.Status)
	assert.Equal(t, 1, info.Counts.Assets)
	assert.Equal(t, 1, info.Counts.Risks)
	assert.Equal(t, filepath.Base(dir), info.ID)
	assert.False(t, info.SavedAt.IsZero())

	_, err = storage.GetAnalysisInfo(filepath.Join(storage.BaseDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAnalyses(t *testing.T) {
	storage := New(t.TempDir())

	older := testBundle(t, "Older", "EV-2027", time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	newer := testBundle(t, "Newer", "EV-2028", time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC))
	for _, b := range []*Bundle{older, newer} {
		_, err := storage.SaveBundle(b)
		require.NoError(t, err)
	}

	infos, err := storage.ListAnalyses("", 0)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Newer", infos[0].Name)
	assert.Equal(t, "Older", infos[1].Name)

	filtered, err := storage.ListAnalyses("EV-2027", 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Older", filtered[0].Name)

	limited, err := storage.ListAnalyses("", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Newer", limited[0].Name)
}

func TestListAnalysesEmptyDir(t *testing.T) {
	storage := New(filepath.Join(t.TempDir(), "does-not-exist"))

	infos, err := storage.ListAnalyses("", 0)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestFindLatestAnalysis(t *testing.T) {
	storage := New(t.TempDir())

	_, err := storage.FindLatestAnalysis()
	assert.ErrorIs(t, err, ErrNotFound)

	older := testBundle(t, "Older", "EV-2027", time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	newer := testBundle(t, "Newer", "EV-2027", time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC))
	var newerDir string
	for _, b := range []*Bundle{older, newer} {
		dir, err := storage.SaveBundle(b)
		require.NoError(t, err)
		if b == newer {
			newerDir = dir
		}
	}

	latest, err := storage.FindLatestAnalysis()
	require.NoError(t, err)
	assert.Equal(t, newerDir, latest)
}

func TestSaveArtifactGeneric(t *testing.T) {
	storage := New(t.TempDir())
	bundle := testBundle(t, "Enriched", "EV-2027", time.Now().UTC())

	dir, err := storage.SaveBundle(bundle)
	require.NoError(t, err)

	payload := map[string]any{"run_id": "abc", "enriched": 3}
	require.NoError(t, storage.SaveArtifact(dir, FileEnrichments, payload))

	var loaded map[string]any
	require.NoError(t, storage.LoadArtifact(dir, FileEnrichments, &loaded))
	assert.Equal(t, "abc", loaded["run_id"])

	// Traversal in the artifact name is rejected.
	err = storage.SaveArtifact(dir, "../escape.json", payload)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
