package models

import (
	"fmt"
	"time"
)

// AttackPath describes how an attacker reaches an asset for one threat
// scenario: entry point, ordered steps, and prerequisites.
type AttackPath struct {
	CreatedAt     time.Time    `json:"created_at"`
	ID            string       `json:"id"`
	AnalysisID    string       `json:"analysis_id"`
	ThreatID      string       `json:"threat_id"`
	EntryPoint    string       `json:"entry_point"`
	Vector        AttackVector `json:"vector"`
	Steps         []string     `json:"steps"`
	Prerequisites []string     `json:"prerequisites,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

// NewAttackPath creates an attack path for a threat scenario.
func NewAttackPath(analysisID, threatID, entryPoint string, vector AttackVector, steps []string) *AttackPath {
	return &AttackPath{
		ID:         GenerateRatingID(analysisID, threatID, "attack_path"),
		AnalysisID: analysisID,
		ThreatID:   threatID,
		EntryPoint: entryPoint,
		Vector:     vector,
		Steps:      steps,
		CreatedAt:  time.Now(),
	}
}

// IsValid checks required fields and enum membership.
func (p *AttackPath) IsValid() error {
	if p.ThreatID == "" {
		return fmt.Errorf("attack path missing required field: threat_id")
	}
	if p.EntryPoint == "" {
		return fmt.Errorf("attack path missing required field: entry_point")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("attack path requires at least one step")
	}
	if !IsValidAttackVector(p.Vector) {
		return fmt.Errorf("attack path has unknown vector: %s", p.Vector)
	}
	return nil
}
