package models

import (
	"fmt"
	"time"
)

// Treatment records the decision for one assessed risk: what is done about
// it, with which countermeasures, at what cost, and what risk remains.
type Treatment struct {
	CreatedAt       time.Time         `json:"created_at"`
	ID              string            `json:"id"`
	AnalysisID      string            `json:"analysis_id"`
	RiskID          string            `json:"risk_id"`
	Decision        TreatmentDecision `json:"decision"`
	Rationale       string            `json:"rationale"`
	Countermeasures []string          `json:"countermeasures,omitempty"`
	EstimatedCost   float64           `json:"estimated_cost,omitempty"`
	OriginalRisk    RiskLevel         `json:"original_risk"`
	ResidualRisk    RiskLevel         `json:"residual_risk"`
	Approval        ApprovalStatus    `json:"approval"`
	Owner           string            `json:"owner,omitempty"`
}

// NewTreatment creates a pending treatment for a risk.
func NewTreatment(analysisID, riskID string, decision TreatmentDecision, original RiskLevel) *Treatment {
	return &Treatment{
		ID:           GenerateRatingID(analysisID, riskID, "treatment"),
		AnalysisID:   analysisID,
		RiskID:       riskID,
		Decision:     decision,
		OriginalRisk: original,
		ResidualRisk: original,
		Approval:     ApprovalPending,
		CreatedAt:    time.Now(),
	}
}

// IsValid enforces the treatment decision rules: residual risk never exceeds
// the original level, non-accept decisions name countermeasures, and
// reduce/transfer decisions carry a positive cost estimate.
func (t *Treatment) IsValid() error {
	if t.RiskID == "" {
		return fmt.Errorf("treatment missing required field: risk_id")
	}
	if !IsValidTreatmentDecision(t.Decision) {
		return fmt.Errorf("treatment has unknown decision: %s", t.Decision)
	}
	if t.Rationale == "" {
		return fmt.Errorf("treatment missing required field: rationale")
	}
	if !IsValidRiskLevel(t.OriginalRisk) {
		return fmt.Errorf("treatment has unknown original risk: %s", t.OriginalRisk)
	}
	if !IsValidRiskLevel(t.ResidualRisk) {
		return fmt.Errorf("treatment has unknown residual risk: %s", t.ResidualRisk)
	}
	if t.ResidualRisk.Ordinal() > t.OriginalRisk.Ordinal() {
		return fmt.Errorf("residual risk %s exceeds original risk %s", t.ResidualRisk, t.OriginalRisk)
	}
	if t.Decision != DecisionAccept && len(t.Countermeasures) == 0 {
		return fmt.Errorf("treatment decision %s requires countermeasures", t.Decision)
	}
	if (t.Decision == DecisionReduce || t.Decision == DecisionTransfer) && t.EstimatedCost <= 0 {
		return fmt.Errorf("treatment decision %s requires a positive cost estimate", t.Decision)
	}
	if t.Approval != "" && !IsValidApprovalStatus(t.Approval) {
		return fmt.Errorf("treatment has unknown approval status: %s", t.Approval)
	}
	return nil
}
