// Package models contains the TARA domain entities for AutoGT: assets,
// threat scenarios, ratings, treatments, and goals, plus the enum
// vocabularies ISO/SAE 21434 work products use.
package models

// AssetType classifies what kind of item an asset is.
type AssetType string

// Asset types.
const (
	AssetHardware      AssetType = "hardware"
	AssetSoftware      AssetType = "software"
	AssetCommunication AssetType = "communication"
	AssetData          AssetType = "data"
	AssetHuman         AssetType = "human"
	AssetPhysical      AssetType = "physical"
)

// ValidAssetTypes returns all asset types.
func ValidAssetTypes() []AssetType {
	return []AssetType{
		AssetHardware,
		AssetSoftware,
		AssetCommunication,
		AssetData,
		AssetHuman,
		AssetPhysical,
	}
}

// IsValidAssetType checks if an asset type is known.
func IsValidAssetType(t AssetType) bool {
	switch t {
	case AssetHardware, AssetSoftware, AssetCommunication, AssetData, AssetHuman, AssetPhysical:
		return true
	default:
		return false
	}
}

// CriticalityLevel expresses how important an asset is to vehicle operation.
type CriticalityLevel string

// Criticality levels.
const (
	CriticalityLow      CriticalityLevel = "low"
	CriticalityMedium   CriticalityLevel = "medium"
	CriticalityHigh     CriticalityLevel = "high"
	CriticalityCritical CriticalityLevel = "critical"
)

// ValidCriticalityLevels returns all criticality levels in ascending order.
func ValidCriticalityLevels() []CriticalityLevel {
	return []CriticalityLevel{CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical}
}

// IsValidCriticalityLevel checks if a criticality level is known.
func IsValidCriticalityLevel(c CriticalityLevel) bool {
	switch c {
	case CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical:
		return true
	default:
		return false
	}
}

// Ordinal returns the 1-based position of the level, 0 for unknown values.
func (c CriticalityLevel) Ordinal() int {
	switch c {
	case CriticalityLow:
		return 1
	case CriticalityMedium:
		return 2
	case CriticalityHigh:
		return 3
	case CriticalityCritical:
		return 4
	default:
		return 0
	}
}

// SecurityProperty is the protection goal a threat compromises.
type SecurityProperty string

// Security properties.
const (
	PropertyConfidentiality SecurityProperty = "confidentiality"
	PropertyIntegrity       SecurityProperty = "integrity"
	PropertyAvailability    SecurityProperty = "availability"
	PropertyAuthenticity    SecurityProperty = "authenticity"
	PropertyAuthorization   SecurityProperty = "authorization"
	PropertyNonRepudiation  SecurityProperty = "non_repudiation"
)

// ValidSecurityProperties returns all security properties.
func ValidSecurityProperties() []SecurityProperty {
	return []SecurityProperty{
		PropertyConfidentiality,
		PropertyIntegrity,
		PropertyAvailability,
		PropertyAuthenticity,
		PropertyAuthorization,
		PropertyNonRepudiation,
	}
}

// IsValidSecurityProperty checks if a security property is known.
func IsValidSecurityProperty(p SecurityProperty) bool {
	switch p {
	case PropertyConfidentiality, PropertyIntegrity, PropertyAvailability,
		PropertyAuthenticity, PropertyAuthorization, PropertyNonRepudiation:
		return true
	default:
		return false
	}
}

// ThreatCategory follows the STRIDE taxonomy.
type ThreatCategory string

// STRIDE threat categories.
const (
	ThreatSpoofing           ThreatCategory = "spoofing"
	ThreatTampering          ThreatCategory = "tampering"
	ThreatRepudiation        ThreatCategory = "repudiation"
	ThreatInfoDisclosure     ThreatCategory = "information_disclosure"
	ThreatDenialOfService    ThreatCategory = "denial_of_service"
	ThreatElevationPrivilege ThreatCategory = "elevation_of_privilege"
)

// ValidThreatCategories returns all STRIDE categories.
func ValidThreatCategories() []ThreatCategory {
	return []ThreatCategory{
		ThreatSpoofing,
		ThreatTampering,
		ThreatRepudiation,
		ThreatInfoDisclosure,
		ThreatDenialOfService,
		ThreatElevationPrivilege,
	}
}

// IsValidThreatCategory checks if a threat category is known.
func IsValidThreatCategory(c ThreatCategory) bool {
	switch c {
	case ThreatSpoofing, ThreatTampering, ThreatRepudiation,
		ThreatInfoDisclosure, ThreatDenialOfService, ThreatElevationPrivilege:
		return true
	default:
		return false
	}
}

// AttackVector is the access an attacker needs to reach an asset.
type AttackVector string

// Attack vectors, ordered from most to least access required.
const (
	VectorPhysical        AttackVector = "physical"
	VectorLocal           AttackVector = "local"
	VectorAdjacentNetwork AttackVector = "adjacent_network"
	VectorNetwork         AttackVector = "network"
)

// ValidAttackVectors returns all attack vectors.
func ValidAttackVectors() []AttackVector {
	return []AttackVector{VectorPhysical, VectorLocal, VectorAdjacentNetwork, VectorNetwork}
}

// IsValidAttackVector checks if an attack vector is known.
func IsValidAttackVector(v AttackVector) bool {
	switch v {
	case VectorPhysical, VectorLocal, VectorAdjacentNetwork, VectorNetwork:
		return true
	default:
		return false
	}
}

// ImpactCategory is one of the four ISO/SAE 21434 damage dimensions.
type ImpactCategory string

// Impact categories.
const (
	CategorySafety      ImpactCategory = "safety"
	CategoryFinancial   ImpactCategory = "financial"
	CategoryOperational ImpactCategory = "operational"
	CategoryPrivacy     ImpactCategory = "privacy"
)

// ValidImpactCategories returns all impact categories.
func ValidImpactCategories() []ImpactCategory {
	return []ImpactCategory{CategorySafety, CategoryFinancial, CategoryOperational, CategoryPrivacy}
}

// IsValidImpactCategory checks if an impact category is known.
func IsValidImpactCategory(c ImpactCategory) bool {
	switch c {
	case CategorySafety, CategoryFinancial, CategoryOperational, CategoryPrivacy:
		return true
	default:
		return false
	}
}

// TreatmentStrategy is a recommended way of handling an assessed risk.
type TreatmentStrategy string

// Treatment strategies the advisor recommends.
const (
	StrategyAccept   TreatmentStrategy = "accept"
	StrategyMonitor  TreatmentStrategy = "monitor"
	StrategyMitigate TreatmentStrategy = "mitigate"
	StrategyTransfer TreatmentStrategy = "transfer"
	StrategyAvoid    TreatmentStrategy = "avoid"
)

// ValidTreatmentStrategies returns all treatment strategies.
func ValidTreatmentStrategies() []TreatmentStrategy {
	return []TreatmentStrategy{StrategyAccept, StrategyMonitor, StrategyMitigate, StrategyTransfer, StrategyAvoid}
}

// IsValidTreatmentStrategy checks if a treatment strategy is known.
func IsValidTreatmentStrategy(s TreatmentStrategy) bool {
	switch s {
	case StrategyAccept, StrategyMonitor, StrategyMitigate, StrategyTransfer, StrategyAvoid:
		return true
	default:
		return false
	}
}

// TreatmentDecision is the decision recorded for a risk per ISO/SAE 21434
// clause 15 (risk treatment).
type TreatmentDecision string

// Treatment decisions.
const (
	DecisionAccept   TreatmentDecision = "accept"
	DecisionReduce   TreatmentDecision = "reduce"
	DecisionTransfer TreatmentDecision = "transfer"
	DecisionAvoid    TreatmentDecision = "avoid"
)

// ValidTreatmentDecisions returns all treatment decisions.
func ValidTreatmentDecisions() []TreatmentDecision {
	return []TreatmentDecision{DecisionAccept, DecisionReduce, DecisionTransfer, DecisionAvoid}
}

// IsValidTreatmentDecision checks if a treatment decision is known.
func IsValidTreatmentDecision(d TreatmentDecision) bool {
	switch d {
	case DecisionAccept, DecisionReduce, DecisionTransfer, DecisionAvoid:
		return true
	default:
		return false
	}
}

// ApprovalStatus tracks review state of a treatment.
type ApprovalStatus string

// Approval statuses.
const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// IsValidApprovalStatus checks if an approval status is known.
func IsValidApprovalStatus(s ApprovalStatus) bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

// ConfidenceLevel grades how much trust to place in a generated suggestion.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// IsValidConfidenceLevel checks if a confidence level is known.
func IsValidConfidenceLevel(c ConfidenceLevel) bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	default:
		return false
	}
}
