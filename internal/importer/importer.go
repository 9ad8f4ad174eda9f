// Package importer converts user-supplied asset definition files into typed
// TARA entities. YAML and JSON documents carry assets with optional impact
// ratings and manual threat scenarios; CSV carries a flat asset list under a
// fixed header. A file either imports completely or not at all.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/pkg/logger"
)

// Document is the YAML/JSON asset definition file.
type Document struct {
	Assets []AssetDefinition `json:"assets" yaml:"assets" validate:"required,min=1,dive"`
}

// AssetDefinition is one asset entry, optionally carrying its impact rating
// and manually identified threats.
type AssetDefinition struct {
	Name        string             `json:"name" yaml:"name" validate:"required"`
	Type        string             `json:"type" yaml:"type" validate:"required"`
	Criticality string             `json:"criticality,omitempty" yaml:"criticality,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Interfaces  []string           `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Properties  []string           `json:"properties,omitempty" yaml:"properties,omitempty"`
	Impact      map[string]string  `json:"impact,omitempty" yaml:"impact,omitempty"`
	Threats     []ThreatDefinition `json:"threats,omitempty" yaml:"threats,omitempty" validate:"dive"`
}

// ThreatDefinition is a manually identified threat scenario attached to an
// asset entry.
type ThreatDefinition struct {
	Name           string `json:"name" yaml:"name" validate:"required"`
	Category       string `json:"category" yaml:"category" validate:"required"`
	Vector         string `json:"vector,omitempty" yaml:"vector,omitempty"`
	Property       string `json:"property,omitempty" yaml:"property,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	DamageScenario string `json:"damage_scenario,omitempty" yaml:"damage_scenario,omitempty"`
}

// Result holds the converted entities of one successfully imported file.
type Result struct {
	Assets  []*models.Asset
	Impacts []*models.ImpactRating
	Threats []*models.ThreatScenario
}

// csvHeader is the required column order for CSV imports. Interfaces and
// properties cells hold semicolon-separated lists.
var csvHeader = []string{"name", "type", "criticality", "description", "interfaces", "properties"}

// Importer validates and converts definition files for one analysis at a
// time.
type Importer struct {
	validate *validator.Validate
	log      logger.Logger
}

// New creates an importer. A nil logger falls back to the global logger.
func New(log logger.Logger) *Importer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Importer{
		validate: validator.New(),
		log:      log,
	}
}

// ImportFile dispatches on the file extension and converts the definitions
// into entities owned by analysisID. Nothing is returned if any entry is
// invalid.
func (imp *Importer) ImportFile(analysisID, path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return imp.importDocument(analysisID, path, yaml.Unmarshal)
	case ".json":
		return imp.importDocument(analysisID, path, json.Unmarshal)
	case ".csv":
		return imp.importCSV(analysisID, path)
	default:
		return nil, fmt.Errorf("unsupported import format %q (expected .yaml, .yml, .json, or .csv)", filepath.Ext(path))
	}
}

func (imp *Importer) importDocument(analysisID, path string, unmarshal func([]byte, any) error) (*Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is user-requested input
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc Document
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := imp.validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return imp.convert(analysisID, path, doc)
}

func (imp *Importer) importCSV(analysisID, path string) (*Result, error) {
	f, err := os.Open(path) //nolint:gosec // Path is user-requested input
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", path, err)
	}
	if err := checkCSVHeader(header); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no asset rows after header", path)
	}

	doc := Document{Assets: make([]AssetDefinition, 0, len(rows))}
	for i, row := range rows {
		// Row numbering counts the header line.
		line := i + 2
		name := strings.TrimSpace(row[0])
		if name == "" {
			return nil, fmt.Errorf("%s: row %d: name is required", path, line)
		}
		if strings.TrimSpace(row[1]) == "" {
			return nil, fmt.Errorf("%s: row %d: type is required", path, line)
		}
		doc.Assets = append(doc.Assets, AssetDefinition{
			Name:        name,
			Type:        strings.TrimSpace(row[1]),
			Criticality: strings.TrimSpace(row[2]),
			Description: strings.TrimSpace(row[3]),
			Interfaces:  splitList(row[4]),
			Properties:  splitList(row[5]),
		})
	}

	return imp.convert(analysisID, path, doc)
}

func checkCSVHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return fmt.Errorf("expected header %q, got %d columns", strings.Join(csvHeader, ","), len(header))
	}
	for i, col := range header {
		if strings.ToLower(strings.TrimSpace(col)) != csvHeader[i] {
			return fmt.Errorf("expected header %q, got column %d %q", strings.Join(csvHeader, ","), i+1, col)
		}
	}
	return nil
}

// splitList parses a semicolon-separated cell into trimmed entries.
func splitList(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (imp *Importer) convert(analysisID, path string, doc Document) (*Result, error) {
	result := &Result{}
	seen := make(map[string]string, len(doc.Assets))

	for i, def := range doc.Assets {
		asset, err := buildAsset(analysisID, def)
		if err != nil {
			return nil, fmt.Errorf("%s: asset %d (%s): %w", path, i+1, def.Name, err)
		}
		if prior, ok := seen[asset.ID]; ok {
			return nil, fmt.Errorf("%s: asset %d (%s): duplicates entry %s", path, i+1, def.Name, prior)
		}
		seen[asset.ID] = def.Name
		result.Assets = append(result.Assets, asset)

		if len(def.Impact) > 0 {
			rating, err := buildImpact(analysisID, asset.ID, def.Impact)
			if err != nil {
				return nil, fmt.Errorf("%s: asset %d (%s): %w", path, i+1, def.Name, err)
			}
			result.Impacts = append(result.Impacts, rating)
		}

		for j, td := range def.Threats {
			threat, err := buildThreat(analysisID, asset.ID, td)
			if err != nil {
				return nil, fmt.Errorf("%s: asset %d (%s): threat %d: %w", path, i+1, def.Name, j+1, err)
			}
			result.Threats = append(result.Threats, threat)
		}
	}

	imp.log.Info("Definitions imported",
		"file", path,
		"assets", len(result.Assets),
		"impacts", len(result.Impacts),
		"threats", len(result.Threats))
	return result, nil
}

func buildAsset(analysisID string, def AssetDefinition) (*models.Asset, error) {
	assetType := models.AssetType(normalize(def.Type))
	if !models.IsValidAssetType(assetType) {
		return nil, fmt.Errorf("unknown asset type %q", def.Type)
	}

	asset := models.NewAsset(analysisID, def.Name, assetType)
	asset.Description = def.Description
	asset.Interfaces = def.Interfaces

	if def.Criticality != "" {
		criticality := models.CriticalityLevel(normalize(def.Criticality))
		if !models.IsValidCriticalityLevel(criticality) {
			return nil, fmt.Errorf("unknown criticality %q", def.Criticality)
		}
		asset.Criticality = criticality
	}

	for _, raw := range def.Properties {
		property := models.SecurityProperty(normalize(raw))
		if !models.IsValidSecurityProperty(property) {
			return nil, fmt.Errorf("unknown security property %q", raw)
		}
		asset.Properties = append(asset.Properties, property)
	}

	return asset, nil
}

func buildImpact(analysisID, assetID string, raw map[string]string) (*models.ImpactRating, error) {
	categories := make(map[models.ImpactCategory]models.ImpactLevel, len(raw))
	for rawCategory, rawLevel := range raw {
		category := models.ImpactCategory(normalize(rawCategory))
		if !models.IsValidImpactCategory(category) {
			return nil, fmt.Errorf("unknown impact category %q", rawCategory)
		}
		level := models.NormalizeImpactLevel(rawLevel)
		if level == "" {
			return nil, fmt.Errorf("unknown impact level %q for category %q", rawLevel, rawCategory)
		}
		categories[category] = level
	}

	rating, err := models.NewImpactRating(analysisID, assetID, categories)
	if err != nil {
		return nil, fmt.Errorf("building impact rating: %w", err)
	}
	return rating, nil
}

func buildThreat(analysisID, assetID string, def ThreatDefinition) (*models.ThreatScenario, error) {
	category := models.ThreatCategory(normalize(def.Category))
	if !models.IsValidThreatCategory(category) {
		return nil, fmt.Errorf("unknown threat category %q", def.Category)
	}

	threat := models.NewThreatScenario(analysisID, assetID, def.Name, category)
	threat.Description = def.Description
	threat.DamageScenario = def.DamageScenario

	if def.Vector != "" {
		vector := models.AttackVector(normalize(def.Vector))
		if !models.IsValidAttackVector(vector) {
			return nil, fmt.Errorf("unknown attack vector %q", def.Vector)
		}
		threat.Vector = vector
	}
	if def.Property != "" {
		property := models.SecurityProperty(normalize(def.Property))
		if !models.IsValidSecurityProperty(property) {
			return nil, fmt.Errorf("unknown security property %q", def.Property)
		}
		threat.Property = property
	}

	return threat, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
