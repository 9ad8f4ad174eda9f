package models

import (
	"fmt"
	"time"
)

// CybersecurityGoal is a high-level protection requirement derived from a
// treatment, the final TARA work product.
type CybersecurityGoal struct {
	CreatedAt    time.Time        `json:"created_at"`
	ID           string           `json:"id"`
	AnalysisID   string           `json:"analysis_id"`
	AssetID      string           `json:"asset_id"`
	TreatmentID  string           `json:"treatment_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Property     SecurityProperty `json:"property"`
	Verification string           `json:"verification,omitempty"`
}

// NewCybersecurityGoal creates a goal tied to a treatment.
func NewCybersecurityGoal(analysisID, assetID, treatmentID, title string, property SecurityProperty) *CybersecurityGoal {
	return &CybersecurityGoal{
		ID:          GenerateRatingID(analysisID, treatmentID, "goal"),
		AnalysisID:  analysisID,
		AssetID:     assetID,
		TreatmentID: treatmentID,
		Title:       title,
		Property:    property,
		CreatedAt:   time.Now(),
	}
}

// IsValid checks required fields and enum membership.
func (g *CybersecurityGoal) IsValid() error {
	if g.AnalysisID == "" {
		return fmt.Errorf("goal missing required field: analysis_id")
	}
	if g.Title == "" {
		return fmt.Errorf("goal missing required field: title")
	}
	if !IsValidSecurityProperty(g.Property) {
		return fmt.Errorf("goal has unknown property: %s", g.Property)
	}
	return nil
}
