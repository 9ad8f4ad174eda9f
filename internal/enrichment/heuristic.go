package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// HeuristicDriver is the default deterministic driver. It derives threat
// candidates from STRIDE rules over asset interfaces and types, needs no
// external process, and always produces the same output for the same
// input.
type HeuristicDriver struct{}

// NewHeuristicDriver creates the built-in rule driver.
func NewHeuristicDriver() *HeuristicDriver {
	return &HeuristicDriver{}
}

// Name implements Driver.
func (d *HeuristicDriver) Name() string { return "heuristic" }

// IsAvailable implements Driver. The rule driver is always available.
func (d *HeuristicDriver) IsAvailable(_ context.Context) bool { return true }

// interfaceRule maps interface keywords to the threats exposure over that
// interface invites.
type interfaceRule struct {
	vector   models.AttackVector
	keywords []string
	threats  []threatTemplate
}

type threatTemplate struct {
	category models.ThreatCategory
	property models.SecurityProperty
	name     string
	damage   string
}

var interfaceRules = []interfaceRule{
	{
		keywords: []string{"can", "lin", "flexray"},
		vector:   models.VectorLocal,
		threats: []threatTemplate{
			{models.ThreatSpoofing, models.PropertyAuthenticity,
				"Bus message spoofing via %s",
				"forged frames accepted as legitimate control traffic"},
			{models.ThreatTampering, models.PropertyIntegrity,
				"Bus message tampering via %s",
				"modified frames alter vehicle behavior"},
			{models.ThreatDenialOfService, models.PropertyAvailability,
				"Bus flooding via %s",
				"flooded bus starves legitimate control traffic"},
		},
	},
	{
		keywords: []string{"ethernet", "ip", "some/ip", "doip"},
		vector:   models.VectorNetwork,
		threats: []threatTemplate{
			{models.ThreatSpoofing, models.PropertyAuthenticity,
				"Network identity spoofing via %s",
				"attacker impersonates a trusted network peer"},
			{models.ThreatTampering, models.PropertyIntegrity,
				"In-transit data tampering via %s",
				"manipulated payloads reach consuming functions"},
			{models.ThreatDenialOfService, models.PropertyAvailability,
				"Network flooding via %s",
				"service unreachable for dependent functions"},
		},
	},
	{
		keywords: []string{"bluetooth", "wifi", "wi-fi", "wlan", "nfc"},
		vector:   models.VectorAdjacentNetwork,
		threats: []threatTemplate{
			{models.ThreatSpoofing, models.PropertyAuthenticity,
				"Wireless pairing spoofing via %s",
				"rogue device pairs as a trusted peripheral"},
			{models.ThreatTampering, models.PropertyIntegrity,
				"Wireless traffic manipulation via %s",
				"injected wireless traffic alters behavior"},
			{models.ThreatDenialOfService, models.PropertyAvailability,
				"Wireless jamming of %s",
				"wireless link unusable in attacker proximity"},
		},
	},
	{
		keywords: []string{"cellular", "lte", "5g", "telematics", "v2x"},
		vector:   models.VectorNetwork,
		threats: []threatTemplate{
			{models.ThreatSpoofing, models.PropertyAuthenticity,
				"Remote endpoint spoofing via %s",
				"backend impersonation delivers hostile payloads"},
			{models.ThreatTampering, models.PropertyIntegrity,
				"Remote command tampering via %s",
				"altered remote commands reach vehicle functions"},
			{models.ThreatDenialOfService, models.PropertyAvailability,
				"Connectivity denial via %s",
				"remote functions unavailable to the fleet"},
		},
	},
	{
		keywords: []string{"usb", "obd", "jtag", "debug", "uart", "diagnostic"},
		vector:   models.VectorPhysical,
		threats: []threatTemplate{
			{models.ThreatElevationPrivilege, models.PropertyAuthorization,
				"Privileged access via %s",
				"debug access escalates to persistent control"},
			{models.ThreatInfoDisclosure, models.PropertyConfidentiality,
				"Data extraction via %s",
				"stored secrets and personal data read out"},
		},
	},
}

// typeRules contribute candidates based on what the asset is rather than
// how it is reached.
var typeRules = map[models.AssetType][]threatTemplate{
	models.AssetData: {
		{models.ThreatInfoDisclosure, models.PropertyConfidentiality,
			"Unauthorized disclosure of %s",
			"protected data exposed to unauthorized parties"},
		{models.ThreatTampering, models.PropertyIntegrity,
			"Unauthorized modification of %s",
			"corrupted data consumed by dependent functions"},
	},
	models.AssetSoftware: {
		{models.ThreatTampering, models.PropertyIntegrity,
			"Code tampering in %s",
			"modified code executes with the component's privileges"},
		{models.ThreatElevationPrivilege, models.PropertyAuthorization,
			"Privilege escalation through %s",
			"compromised component pivots to higher-privileged functions"},
	},
	models.AssetHuman: {
		{models.ThreatSpoofing, models.PropertyAuthenticity,
			"Social engineering of %s",
			"operator tricked into granting access or revealing secrets"},
	},
	models.AssetCommunication: {
		{models.ThreatSpoofing, models.PropertyAuthenticity,
			"Endpoint spoofing on %s",
			"untrusted endpoint accepted as a communication peer"},
		{models.ThreatDenialOfService, models.PropertyAvailability,
			"Channel exhaustion of %s",
			"communication channel unavailable to its users"},
	},
	models.AssetPhysical: {
		{models.ThreatTampering, models.PropertyIntegrity,
			"Physical manipulation of %s",
			"hardware altered or replaced outside secured processes"},
	},
}

// SuggestThreats implements Driver with deterministic STRIDE rules.
func (d *HeuristicDriver) SuggestThreats(_ context.Context, asset *models.Asset, opts Options) ([]ThreatSuggestion, error) {
	if asset == nil {
		return nil, fmt.Errorf("no asset given")
	}

	var suggestions []ThreatSuggestion
	seen := make(map[string]bool)

	add := func(s ThreatSuggestion) {
		key := string(s.Category) + "|" + s.Name
		if seen[key] {
			return
		}
		seen[key] = true
		suggestions = append(suggestions, s)
	}

	for _, iface := range asset.Interfaces {
		lowered := strings.ToLower(iface)
		for _, rule := range interfaceRules {
			if !matchesKeyword(lowered, rule.keywords) {
				continue
			}
			for _, tmpl := range rule.threats {
				add(ThreatSuggestion{
					Name:           fmt.Sprintf(tmpl.name, iface),
					Category:       tmpl.category,
					Vector:         rule.vector,
					Property:       tmpl.property,
					DamageScenario: tmpl.damage,
					Rationale:      fmt.Sprintf("asset exposes a %s interface", iface),
					Confidence:     models.ConfidenceHigh,
				})
			}
		}
	}

	for _, tmpl := range typeRules[asset.Type] {
		add(ThreatSuggestion{
			Name:           fmt.Sprintf(tmpl.name, asset.Name),
			Category:       tmpl.category,
			Vector:         defaultVector(asset),
			Property:       tmpl.property,
			DamageScenario: tmpl.damage,
			Rationale:      fmt.Sprintf("asset is of type %s", asset.Type),
			Confidence:     models.ConfidenceMedium,
		})
	}

	// An asset nothing matched still gets a baseline candidate so the
	// threat step never runs on empty.
	if len(suggestions) == 0 {
		add(ThreatSuggestion{
			Name:           fmt.Sprintf("Tampering with %s", asset.Name),
			Category:       models.ThreatTampering,
			Vector:         models.VectorPhysical,
			Property:       models.PropertyIntegrity,
			DamageScenario: "asset manipulated outside secured processes",
			Rationale:      "baseline candidate for assets without interface or type rules",
			Confidence:     models.ConfidenceLow,
		})
	}

	if opts.MaxSuggestions > 0 && len(suggestions) > opts.MaxSuggestions {
		suggestions = suggestions[:opts.MaxSuggestions]
	}
	return suggestions, nil
}

// ReviewRisk implements Driver. The heuristic review re-derives the level
// from the matrix and flags scores sitting close to a threshold cut.
func (d *HeuristicDriver) ReviewRisk(_ context.Context, value *risk.Value, _ Options) (ReviewNote, error) {
	if value == nil {
		return ReviewNote{}, fmt.Errorf("no risk value given")
	}

	matrix := risk.ISO21434Standard()
	if value.Method == risk.MethodCustom {
		// Custom thresholds are not known here; trust the stored level.
		return ReviewNote{
			RiskID:     value.ID,
			Agrees:     true,
			Note:       "custom-threshold value, stored level taken as-is",
			Confidence: models.ConfidenceLow,
		}, nil
	}

	derived, err := matrix.Level(value.ImpactLevel, value.LikelihoodLevel)
	if err != nil {
		return ReviewNote{}, fmt.Errorf("re-deriving level: %w", err)
	}

	note := ReviewNote{RiskID: value.ID, Agrees: derived == value.RiskLevel}
	switch {
	case !note.Agrees:
		note.Note = fmt.Sprintf("stored level %s disagrees with matrix level %s for (%s, %s)",
			value.RiskLevel, derived, value.ImpactLevel, value.LikelihoodLevel)
		note.Confidence = models.ConfidenceHigh
	case nearCut(value.RiskScore, matrix.Thresholds()):
		note.Note = fmt.Sprintf("score %s sits near a level boundary; consider a manual check", value.FormattedScore())
		note.Confidence = models.ConfidenceMedium
	default:
		note.Note = fmt.Sprintf("level %s consistent with (%s, %s)",
			value.RiskLevel, value.ImpactLevel, value.LikelihoodLevel)
		note.Confidence = models.ConfidenceHigh
	}
	return note, nil
}

func matchesKeyword(iface string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(iface, kw) {
			return true
		}
	}
	return false
}

// defaultVector picks the vector for type-derived candidates: networked
// assets default to network access, everything else to physical.
func defaultVector(asset *models.Asset) models.AttackVector {
	switch asset.Type {
	case models.AssetCommunication, models.AssetSoftware, models.AssetData:
		return models.VectorNetwork
	default:
		return models.VectorPhysical
	}
}

func nearCut(score float64, t risk.Thresholds) bool {
	const margin = 0.05
	for _, cut := range []float64{t.LowMax, t.MediumMax, t.HighMax} {
		if score >= cut-margin && score <= cut+margin {
			return true
		}
	}
	return false
}
