package models

import (
	"fmt"
	"time"
)

// Attack feasibility factor domains per ISO/SAE 21434's attack potential
// approach. Each value carries a canonical score; higher means easier for
// the attacker.

// ElapsedTime is the time an attack takes to identify and exploit.
type ElapsedTime string

// Elapsed time grades.
const (
	TimeOneDay          ElapsedTime = "one_day"
	TimeOneWeek         ElapsedTime = "one_week"
	TimeOneMonth        ElapsedTime = "one_month"
	TimeSixMonths       ElapsedTime = "six_months"
	TimeBeyondSixMonths ElapsedTime = "beyond_six_months"
)

// Score returns the canonical score, 0 for unknown values.
func (e ElapsedTime) Score() float64 {
	switch e {
	case TimeOneDay:
		return 1.0
	case TimeOneWeek:
		return 0.8
	case TimeOneMonth:
		return 0.6
	case TimeSixMonths:
		return 0.4
	case TimeBeyondSixMonths:
		return 0.2
	default:
		return 0
	}
}

// Expertise is the attacker skill an attack requires.
type Expertise string

// Expertise grades.
const (
	ExpertiseLayperson       Expertise = "layperson"
	ExpertiseProficient      Expertise = "proficient"
	ExpertiseExpert          Expertise = "expert"
	ExpertiseMultipleExperts Expertise = "multiple_experts"
)

// Score returns the canonical score, 0 for unknown values.
func (e Expertise) Score() float64 {
	switch e {
	case ExpertiseLayperson:
		return 1.0
	case ExpertiseProficient:
		return 0.6
	case ExpertiseExpert:
		return 0.4
	case ExpertiseMultipleExperts:
		return 0.2
	default:
		return 0
	}
}

// Knowledge is how much item-specific knowledge an attack requires.
type Knowledge string

// Knowledge grades.
const (
	KnowledgePublic         Knowledge = "public"
	KnowledgeRestricted     Knowledge = "restricted"
	KnowledgeConfidential   Knowledge = "confidential"
	KnowledgeStrictlySecret Knowledge = "strictly_confidential"
)

// Score returns the canonical score, 0 for unknown values.
func (k Knowledge) Score() float64 {
	switch k {
	case KnowledgePublic:
		return 1.0
	case KnowledgeRestricted:
		return 0.6
	case KnowledgeConfidential:
		return 0.4
	case KnowledgeStrictlySecret:
		return 0.1
	default:
		return 0
	}
}

// Opportunity is the window of opportunity the attacker needs.
type Opportunity string

// Opportunity grades.
const (
	OpportunityUnlimited Opportunity = "unlimited"
	OpportunityEasy      Opportunity = "easy"
	OpportunityModerate  Opportunity = "moderate"
	OpportunityDifficult Opportunity = "difficult"
)

// Score returns the canonical score, 0 for unknown values.
func (o Opportunity) Score() float64 {
	switch o {
	case OpportunityUnlimited:
		return 1.0
	case OpportunityEasy:
		return 0.6
	case OpportunityModerate:
		return 0.4
	case OpportunityDifficult:
		return 0.1
	default:
		return 0
	}
}

// Equipment is the tooling an attack requires.
type Equipment string

// Equipment grades.
const (
	EquipmentStandard        Equipment = "standard"
	EquipmentSpecialized     Equipment = "specialized"
	EquipmentBespoke         Equipment = "bespoke"
	EquipmentMultipleBespoke Equipment = "multiple_bespoke"
)

// Score returns the canonical score, 0 for unknown values.
func (e Equipment) Score() float64 {
	switch e {
	case EquipmentStandard:
		return 1.0
	case EquipmentSpecialized:
		return 0.6
	case EquipmentBespoke:
		return 0.4
	case EquipmentMultipleBespoke:
		return 0.2
	default:
		return 0
	}
}

// Factor weights for the overall feasibility score. Elapsed time dominates,
// equipment matters least.
const (
	weightElapsedTime = 0.30
	weightExpertise   = 0.25
	weightKnowledge   = 0.20
	weightOpportunity = 0.15
	weightEquipment   = 0.10
)

// FeasibilityRating grades how achievable an attack is for one threat
// scenario. Level and Score are derived together from the five factors.
type FeasibilityRating struct {
	CreatedAt   time.Time       `json:"created_at"`
	ID          string          `json:"id"`
	AnalysisID  string          `json:"analysis_id"`
	ThreatID    string          `json:"threat_id"`
	ElapsedTime ElapsedTime     `json:"elapsed_time"`
	Expertise   Expertise       `json:"expertise"`
	Knowledge   Knowledge       `json:"knowledge"`
	Opportunity Opportunity     `json:"opportunity"`
	Equipment   Equipment       `json:"equipment"`
	Rationale   string          `json:"rationale,omitempty"`
	Level       LikelihoodLevel `json:"level"`
	Score       float64         `json:"score"`
}

// NewFeasibilityRating derives level and score from the five factors. All
// factors must be valid grades.
func NewFeasibilityRating(analysisID, threatID string, et ElapsedTime, ex Expertise, kn Knowledge, op Opportunity, eq Equipment) (*FeasibilityRating, error) {
	for _, check := range []struct {
		name  string
		score float64
	}{
		{"elapsed_time", et.Score()},
		{"expertise", ex.Score()},
		{"knowledge", kn.Score()},
		{"opportunity", op.Score()},
		{"equipment", eq.Score()},
	} {
		if check.score == 0 {
			return nil, fmt.Errorf("feasibility rating has unknown %s grade", check.name)
		}
	}

	score := Round3(et.Score()*weightElapsedTime +
		ex.Score()*weightExpertise +
		kn.Score()*weightKnowledge +
		op.Score()*weightOpportunity +
		eq.Score()*weightEquipment)

	return &FeasibilityRating{
		ID:          GenerateRatingID(analysisID, threatID, "feasibility"),
		AnalysisID:  analysisID,
		ThreatID:    threatID,
		ElapsedTime: et,
		Expertise:   ex,
		Knowledge:   kn,
		Opportunity: op,
		Equipment:   eq,
		Level:       feasibilityLevelForScore(score),
		Score:       score,
		CreatedAt:   time.Now(),
	}, nil
}

// feasibilityLevelForScore bands a weighted factor score into the
// likelihood domain.
func feasibilityLevelForScore(score float64) LikelihoodLevel {
	switch {
	case score >= 0.8:
		return LikelihoodVeryHigh
	case score >= 0.6:
		return LikelihoodHigh
	case score >= 0.4:
		return LikelihoodMedium
	case score >= 0.2:
		return LikelihoodLow
	default:
		return LikelihoodVeryLow
	}
}

// IsValid checks the derived fields.
func (r *FeasibilityRating) IsValid() error {
	if r.ThreatID == "" {
		return fmt.Errorf("feasibility rating missing required field: threat_id")
	}
	if !IsValidLikelihoodLevel(r.Level) {
		return fmt.Errorf("feasibility rating has unknown level: %s", r.Level)
	}
	if r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("feasibility rating score out of range: %v", r.Score)
	}
	return nil
}
