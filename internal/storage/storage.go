// Package storage handles file-based persistence of analysis artifacts.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/logger"
	"github.com/autogt/autogt/pkg/pathutil"
)

// ErrNotFound is returned when no stored analysis matches.
var ErrNotFound = errors.New("analysis not found")

// Artifact file names inside an analysis directory.
const (
	FileAnalysis    = "analysis.json"
	FileAssets      = "assets.json"
	FileThreats     = "threats.json"
	FileRisks       = "risks.json"
	FileTreatments  = "treatments.json"
	FileGoals       = "goals.json"
	FileMetadata    = "metadata.json"
	FileEnrichments = "enrichments.json"
)

// Storage saves and loads analysis artifacts under a base directory, one
// subdirectory per analysis.
type Storage struct {
	logger  logger.Logger
	baseDir string
}

// New creates a storage instance rooted at baseDir.
func New(baseDir string) *Storage {
	return NewWithLogger(baseDir, logger.GetGlobalLogger())
}

// NewWithLogger creates a storage instance with a custom logger.
func NewWithLogger(baseDir string, log logger.Logger) *Storage {
	return &Storage{
		baseDir: baseDir,
		logger:  log,
	}
}

// BaseDir returns the storage root.
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// Bundle is the full artifact set for one analysis.
type Bundle struct {
	Analysis   *models.Analysis            `json:"analysis"`
	Assets     []*models.Asset             `json:"assets"`
	Threats    []*models.ThreatScenario    `json:"threats"`
	Risks      []*risk.Value               `json:"risks"`
	Treatments []*models.Treatment         `json:"treatments"`
	Goals      []*models.CybersecurityGoal `json:"goals"`
}

// Counts summarizes the artifact sizes recorded in metadata.json.
type Counts struct {
	Assets     int `json:"assets"`
	Threats    int `json:"threats"`
	Risks      int `json:"risks"`
	Treatments int `json:"treatments"`
	Goals      int `json:"goals"`
}

// Metadata is the metadata.json payload written beside the artifacts.
type Metadata struct {
	SavedAt     time.Time             `json:"saved_at"`
	AnalysisID  string                `json:"analysis_id"`
	Name        string                `json:"name"`
	Vehicle     string                `json:"vehicle"`
	Status      models.AnalysisStatus `json:"status"`
	CurrentStep models.TaraStep       `json:"current_step"`
	Counts      Counts                `json:"counts"`
}

// AnalysisInfo provides summary information about a stored analysis.
type AnalysisInfo struct {
	SavedAt     time.Time
	ID          string
	Path        string
	AnalysisID  string
	Name        string
	Vehicle     string
	Status      models.AnalysisStatus
	CurrentStep models.TaraStep
	Counts      Counts
}

// AnalysisDir returns the directory name for an analysis: creation
// timestamp then a short ID, so lexicographic order is chronological.
func (s *Storage) AnalysisDir(analysis *models.Analysis) string {
	id := analysis.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s-%s", analysis.CreatedAt.UTC().Format("20060102-150405"), id)
	return filepath.Join(s.baseDir, name)
}

// EnsureAnalysisDir creates the analysis directory if needed and returns
// its path.
func (s *Storage) EnsureAnalysisDir(analysis *models.Analysis) (string, error) {
	dir := s.AnalysisDir(analysis)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating analysis directory: %w", err)
	}
	return dir, nil
}

// SaveBundle writes every artifact of a bundle plus metadata, creating the
// analysis directory as needed. It returns the directory written to.
func (s *Storage) SaveBundle(bundle *Bundle) (string, error) {
	if bundle == nil || bundle.Analysis == nil {
		return "", fmt.Errorf("bundle has no analysis")
	}

	dir, err := s.EnsureAnalysisDir(bundle.Analysis)
	if err != nil {
		return "", err
	}

	artifacts := []struct {
		data any
		name string
	}{
		{bundle.Analysis, FileAnalysis},
		{bundle.Assets, FileAssets},
		{bundle.Threats, FileThreats},
		{bundle.Risks, FileRisks},
		{bundle.Treatments, FileTreatments},
		{bundle.Goals, FileGoals},
	}
	for _, artifact := range artifacts {
		if err := s.SaveArtifact(dir, artifact.name, artifact.data); err != nil {
			return "", err
		}
	}

	metadata := Metadata{
		SavedAt:     time.Now().UTC(),
		AnalysisID:  bundle.Analysis.ID,
		Name:        bundle.Analysis.Name,
		Vehicle:     bundle.Analysis.Vehicle,
		Status:      bundle.Analysis.Status,
		CurrentStep: bundle.Analysis.CurrentStep,
		Counts: Counts{
			Assets:     len(bundle.Assets),
			Threats:    len(bundle.Threats),
			Risks:      len(bundle.Risks),
			Treatments: len(bundle.Treatments),
			Goals:      len(bundle.Goals),
		},
	}
	if err := s.SaveArtifact(dir, FileMetadata, metadata); err != nil {
		return "", err
	}

	s.logger.Debug("Saved analysis bundle", "dir", dir,
		"assets", metadata.Counts.Assets, "threats", metadata.Counts.Threats,
		"risks", metadata.Counts.Risks)
	return dir, nil
}

// LoadBundle reads a full artifact set back. analysis.json is required;
// missing companion artifacts load as empty.
func (s *Storage) LoadBundle(dir string) (*Bundle, error) {
	bundle := &Bundle{}

	if err := s.LoadArtifact(dir, FileAnalysis, &bundle.Analysis); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("loading analysis: %w", err)
	}

	optional := []struct {
		data any
		name string
	}{
		{&bundle.Assets, FileAssets},
		{&bundle.Threats, FileThreats},
		{&bundle.Risks, FileRisks},
		{&bundle.Treatments, FileTreatments},
		{&bundle.Goals, FileGoals},
	}
	for _, artifact := range optional {
		if err := s.LoadArtifact(dir, artifact.name, artifact.data); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to load artifact", "file", artifact.name, "error", err)
		}
	}

	return bundle, nil
}

// SaveArtifact writes one named artifact as indented JSON.
func (s *Storage) SaveArtifact(dir, name string, data any) error {
	path, err := pathutil.JoinAndValidate(dir, name)
	if err != nil {
		return fmt.Errorf("invalid artifact path: %w", err)
	}
	if err := s.saveJSON(path, data); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}

// LoadArtifact reads one named artifact. The raw os error is returned for
// missing files so callers can branch on os.IsNotExist.
func (s *Storage) LoadArtifact(dir, name string, data any) error {
	path, err := pathutil.JoinAndValidate(dir, name)
	if err != nil {
		return fmt.Errorf("invalid artifact path: %w", err)
	}
	return s.loadJSON(path, data)
}

// GetAnalysisInfo reads the metadata summary for one analysis directory.
func (s *Storage) GetAnalysisInfo(dir string) (*AnalysisInfo, error) {
	var metadata Metadata
	if err := s.LoadArtifact(dir, FileMetadata, &metadata); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("loading metadata: %w", err)
	}

	return &AnalysisInfo{
		SavedAt:     metadata.SavedAt,
		ID:          filepath.Base(dir),
		Path:        dir,
		AnalysisID:  metadata.AnalysisID,
		Name:        metadata.Name,
		Vehicle:     metadata.Vehicle,
		Status:      metadata.Status,
		CurrentStep: metadata.CurrentStep,
		Counts:      metadata.Counts,
	}, nil
}

// ListAnalyses returns stored analyses newest first, optionally filtered
// by vehicle and capped at limit.
func (s *Storage) ListAnalyses(vehicle string, limit int) ([]AnalysisInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading analyses directory: %w", err)
	}

	var infos []AnalysisInfo
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !entry.IsDir() {
			continue
		}

		info, err := s.GetAnalysisInfo(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			s.logger.Debug("Skipping invalid analysis directory", "dir", entry.Name(), "error", err)
			continue
		}

		if vehicle != "" && info.Vehicle != vehicle {
			continue
		}

		infos = append(infos, *info)
		if limit > 0 && len(infos) >= limit {
			break
		}
	}

	return infos, nil
}

// FindLatestAnalysis returns the directory of the most recent analysis.
func (s *Storage) FindLatestAnalysis() (string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("reading analyses directory: %w", err)
	}

	var latest string
	for _, entry := range entries {
		if entry.IsDir() && entry.Name() > latest {
			latest = entry.Name()
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}

	return filepath.Join(s.baseDir, latest), nil
}

func (s *Storage) saveJSON(path string, data any) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (s *Storage) loadJSON(path string, data any) (err error) {
	file, err := os.Open(path) // #nosec G304 - path is validated by caller
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return json.NewDecoder(file).Decode(data)
}
