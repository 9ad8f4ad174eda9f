package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ThreatSource records where a threat scenario came from.
type ThreatSource string

// Threat sources.
const (
	SourceHeuristic ThreatSource = "heuristic"
	SourceAssistant ThreatSource = "assistant"
	SourceManual    ThreatSource = "manual"
)

// IsValidThreatSource checks if a threat source is known.
func IsValidThreatSource(s ThreatSource) bool {
	switch s {
	case SourceHeuristic, SourceAssistant, SourceManual:
		return true
	default:
		return false
	}
}

// ThreatScenario is a way an asset could be attacked, classified by STRIDE
// category and the security property it compromises.
type ThreatScenario struct {
	CreatedAt      time.Time        `json:"created_at"`
	ID             string           `json:"id"`
	AnalysisID     string           `json:"analysis_id"`
	AssetID        string           `json:"asset_id"`
	Name           string           `json:"name"`
	Category       ThreatCategory   `json:"category"`
	Description    string           `json:"description,omitempty"`
	DamageScenario string           `json:"damage_scenario,omitempty"`
	Vector         AttackVector     `json:"vector"`
	Property       SecurityProperty `json:"property"`
	Source         ThreatSource     `json:"source"`
}

// GenerateThreatID creates a stable, deterministic ID for a threat scenario.
func GenerateThreatID(assetID string, category ThreatCategory, name string) string {
	core := fmt.Sprintf("%s:%s:%s", assetID, category, name)
	hash := sha256.Sum256([]byte(core))
	return hex.EncodeToString(hash[:8])
}

// NewThreatScenario creates a threat scenario with a generated ID.
func NewThreatScenario(analysisID, assetID, name string, category ThreatCategory) *ThreatScenario {
	return &ThreatScenario{
		ID:         GenerateThreatID(assetID, category, name),
		AnalysisID: analysisID,
		AssetID:    assetID,
		Name:       name,
		Category:   category,
		Source:     SourceManual,
		CreatedAt:  time.Now(),
	}
}

// IsValid checks required fields and enum membership.
func (t *ThreatScenario) IsValid() error {
	if t.AnalysisID == "" {
		return fmt.Errorf("threat scenario missing required field: analysis_id")
	}
	if t.AssetID == "" {
		return fmt.Errorf("threat scenario missing required field: asset_id")
	}
	if t.Name == "" {
		return fmt.Errorf("threat scenario missing required field: name")
	}
	if !IsValidThreatCategory(t.Category) {
		return fmt.Errorf("threat scenario has unknown category: %s", t.Category)
	}
	if t.Vector != "" && !IsValidAttackVector(t.Vector) {
		return fmt.Errorf("threat scenario has unknown vector: %s", t.Vector)
	}
	if t.Property != "" && !IsValidSecurityProperty(t.Property) {
		return fmt.Errorf("threat scenario has unknown property: %s", t.Property)
	}
	if t.Source != "" && !IsValidThreatSource(t.Source) {
		return fmt.Errorf("threat scenario has unknown source: %s", t.Source)
	}
	return nil
}
