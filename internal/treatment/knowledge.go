// Package treatment turns assessed risks into recorded decisions: a
// countermeasure knowledge base, a planner that drafts treatments per
// risk group, and validation of analyst decisions against the advisor.
package treatment

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/autogt/autogt/internal/models"
)

// Grade rates a countermeasure's effectiveness or relative cost.
type Grade string

// Grades.
const (
	GradeLow    Grade = "low"
	GradeMedium Grade = "medium"
	GradeHigh   Grade = "high"
)

// Ordinal returns the 1-based position of the grade, 0 for unknown values.
func (g Grade) Ordinal() int {
	switch g {
	case GradeLow:
		return 1
	case GradeMedium:
		return 2
	case GradeHigh:
		return 3
	default:
		return 0
	}
}

// IsValidGrade checks if a grade is known.
func IsValidGrade(g Grade) bool {
	return g.Ordinal() != 0
}

// Countermeasure is one defensive control from the knowledge base.
type Countermeasure struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Effectiveness Grade    `yaml:"effectiveness" json:"effectiveness"`
	Cost          Grade    `yaml:"cost" json:"cost"`
	References    []string `yaml:"references,omitempty" json:"references,omitempty"`
}

// KnowledgeBase maps STRIDE categories to applicable countermeasures.
type KnowledgeBase struct {
	entries map[models.ThreatCategory][]Countermeasure
}

// DefaultKnowledgeBase returns the built-in countermeasure catalog.
func DefaultKnowledgeBase() *KnowledgeBase {
	kb := &KnowledgeBase{entries: make(map[models.ThreatCategory][]Countermeasure)}
	for category, measures := range builtinCatalog {
		kb.entries[category] = append([]Countermeasure(nil), measures...)
	}
	kb.sortAll()
	return kb
}

// catalogFile is the YAML layout of a user-supplied catalog.
type catalogFile struct {
	Countermeasures map[models.ThreatCategory][]Countermeasure `yaml:"countermeasures"`
}

// Load reads a YAML catalog and lays it over the defaults. A category
// present in the file replaces the built-in list for that category;
// absent categories keep the defaults.
func Load(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading countermeasure catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing countermeasure catalog %s: %w", path, err)
	}

	kb := DefaultKnowledgeBase()
	for category, measures := range file.Countermeasures {
		if !models.IsValidThreatCategory(category) {
			return nil, fmt.Errorf("countermeasure catalog %s: unknown category %q", path, category)
		}
		for i, m := range measures {
			if m.Name == "" {
				return nil, fmt.Errorf("countermeasure catalog %s: %s entry %d has no name", path, category, i)
			}
			if !IsValidGrade(m.Effectiveness) {
				return nil, fmt.Errorf("countermeasure catalog %s: %q has unknown effectiveness %q", path, m.Name, m.Effectiveness)
			}
			if !IsValidGrade(m.Cost) {
				return nil, fmt.Errorf("countermeasure catalog %s: %q has unknown cost %q", path, m.Name, m.Cost)
			}
		}
		kb.entries[category] = append([]Countermeasure(nil), measures...)
	}
	kb.sortAll()
	return kb, nil
}

// Lookup returns the countermeasures for a category, most effective
// first, cheaper first within the same effectiveness.
func (kb *KnowledgeBase) Lookup(category models.ThreatCategory) []Countermeasure {
	return append([]Countermeasure(nil), kb.entries[category]...)
}

// Top returns at most n countermeasures for a category.
func (kb *KnowledgeBase) Top(category models.ThreatCategory, n int) []Countermeasure {
	measures := kb.entries[category]
	if n > len(measures) {
		n = len(measures)
	}
	return append([]Countermeasure(nil), measures[:n]...)
}

// Categories lists the covered STRIDE categories in a stable order.
func (kb *KnowledgeBase) Categories() []models.ThreatCategory {
	categories := make([]models.ThreatCategory, 0, len(kb.entries))
	for category := range kb.entries {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}

func (kb *KnowledgeBase) sortAll() {
	for _, measures := range kb.entries {
		sort.SliceStable(measures, func(i, j int) bool {
			if a, b := measures[i].Effectiveness.Ordinal(), measures[j].Effectiveness.Ordinal(); a != b {
				return a > b
			}
			if a, b := measures[i].Cost.Ordinal(), measures[j].Cost.Ordinal(); a != b {
				return a < b
			}
			return measures[i].Name < measures[j].Name
		})
	}
}

// builtinCatalog is the default automotive countermeasure set. References
// point at ISO/SAE 21434 clauses and UN R155 Annex 5 mitigations.
var builtinCatalog = map[models.ThreatCategory][]Countermeasure{
	models.ThreatSpoofing: {
		{
			Name:          "Message authentication on in-vehicle buses",
			Description:   "Authenticate safety-relevant frames (e.g. SecOC MAC truncation over CAN) so forged messages are rejected at the receiver.",
			Effectiveness: GradeHigh,
			Cost:          GradeMedium,
			References:    []string{"ISO/SAE 21434:2021 Clause 9", "UN R155 Annex 5 M10"},
		},
		{
			Name:          "Mutual authentication for external interfaces",
			Description:   "Require certificate-based mutual authentication before any offboard endpoint is trusted.",
			Effectiveness: GradeHigh,
			Cost:          GradeHigh,
			References:    []string{"UN R155 Annex 5 M11"},
		},
		{
			Name:          "Pairing confirmation for wireless peripherals",
			Description:   "Numeric-comparison pairing and allow-listing for Bluetooth and Wi-Fi peers.",
			Effectiveness: GradeMedium,
			Cost:          GradeLow,
			References:    []string{"UN R155 Annex 5 M22"},
		},
	},
	models.ThreatTampering: {
		{
			Name:          "Secure boot with verified chain",
			Description:   "Anchor boot integrity in hardware and verify every stage before execution.",
			Effectiveness: GradeHigh,
			Cost:          GradeMedium,
			References:    []string{"ISO/SAE 21434:2021 Clause 10", "UN R155 Annex 5 M7"},
		},
		{
			Name:          "Signed software updates",
			Description:   "Accept only update packages signed by the OEM key, with rollback protection.",
			Effectiveness: GradeHigh,
			Cost:          GradeMedium,
			References:    []string{"UN R156", "UN R155 Annex 5 M16"},
		},
		{
			Name:          "Runtime integrity monitoring",
			Description:   "Measure and report control-unit firmware state against known-good references.",
			Effectiveness: GradeMedium,
			Cost:          GradeHigh,
			References:    []string{"ISO/SAE 21434:2021 Clause 13"},
		},
	},
	models.ThreatRepudiation: {
		{
			Name:          "Security event logging",
			Description:   "Record security-relevant events with source identity into persistent storage.",
			Effectiveness: GradeMedium,
			Cost:          GradeLow,
			References:    []string{"UN R155 7.2.2.2(c)"},
		},
		{
			Name:          "Tamper-evident audit trail",
			Description:   "Hash-chain audit records so deletion or alteration is detectable.",
			Effectiveness: GradeHigh,
			Cost:          GradeMedium,
			References:    []string{"ISO/SAE 21434:2021 Clause 13"},
		},
		{
			Name:          "Synchronized timestamps",
			Description:   "Discipline ECU clocks so event ordering across units holds up in analysis.",
			Effectiveness: GradeLow,
			Cost:          GradeLow,
			References:    []string{"UN R155 Annex 5 M23"},
		},
	},
	models.ThreatInfoDisclosure: {
		{
			Name:          "Encryption of data at rest",
			Description:   "Encrypt personal and cryptographic data stored in the vehicle with hardware-bound keys.",
			Effectiveness: GradeHigh,
			Cost:          GradeMedium,
			References:    []string{"UN R155 Annex 5 M12"},
		},
		{
			Name:          "TLS for offboard channels",
			Description:   "Protect backend and companion-app traffic with mutually authenticated TLS.",
			Effectiveness: GradeHigh,
			Cost:          GradeLow,
			References:    []string{"UN R155 Annex 5 M11"},
		},
		{
			Name:          "Data minimization",
			Description:   "Collect and retain only the data a function needs, with defined retention.",
			Effectiveness: GradeMedium,
			Cost:          GradeLow,
			References:    []string{"ISO/SAE 21434:2021 Clause 15"},
		},
	},
	models.ThreatDenialOfService: {
		{
			Name:          "Bus load monitoring and rate limiting",
			Description:   "Detect flooding on CAN/Ethernet segments and shed or isolate the offending source.",
			Effectiveness: GradeMedium,
			Cost:          GradeLow,
			References:    []string{"UN R155 Annex 5 M13"},
		},
		{
			Name:          "Redundant communication path",
			Description:   "Route safety-relevant signals over independent channels so one jammed link is survivable.",
			Effectiveness: GradeHigh,
			Cost:          GradeHigh,
			References:    []string{"ISO 26262 interplay, ISO/SAE 21434:2021 Clause 9"},
		},
		{
			Name:          "Watchdog-based recovery",
			Description:   "Restart starved control functions into a safe state when liveness checks fail.",
			Effectiveness: GradeMedium,
			Cost:          GradeLow,
			References:    []string{"UN R155 Annex 5 M13"},
		},
	},
	models.ThreatElevationPrivilege: {
		{
			Name:          "Debug interface lockdown",
			Description:   "Disable or challenge-protect JTAG/UART/engineering modes in production parts.",
			Effectiveness: GradeHigh,
			Cost:          GradeLow,
			References:    []string{"UN R155 Annex 5 M9"},
		},
		{
			Name:          "Least-privilege process isolation",
			Description:   "Confine services with MAC policies and minimal capabilities so one compromise does not own the unit.",
			Effectiveness: GradeHigh,
			Cost:          GradeMedium,
			References:    []string{"ISO/SAE 21434:2021 Clause 10"},
		},
		{
			Name:          "Hardened OS configuration",
			Description:   "Remove unused services, enforce signed binaries, and restrict interpreter access.",
			Effectiveness: GradeMedium,
			Cost:          GradeMedium,
			References:    []string{"UN R155 Annex 5 M20"},
		},
	},
}
