package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/autogt/autogt/pkg/logger"
)

// markdownFormat writes a human-readable report for review meetings and
// repository checkins.
type markdownFormat struct {
	logger logger.Logger
}

// Generate writes the report as Markdown.
func (f *markdownFormat) Generate(rep *Report, w io.Writer) error {
	// cases.Caser carries state, so each generation gets its own.
	title := cases.Title(language.English)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# TARA Report: %s\n\n", rep.Analysis.Name))
	f.writeHeader(&b, title, rep)
	f.writeStats(&b, title, rep)
	f.writeAssets(&b, title, rep)
	f.writeSummaries(&b, title, rep)
	f.writeRisks(&b, title, rep)
	f.writeTreatments(&b, title, rep)
	f.writeGoals(&b, title, rep)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing Markdown report: %w", err)
	}
	return nil
}

func (f *markdownFormat) writeHeader(b *strings.Builder, title cases.Caser, rep *Report) {
	h := rep.Analysis
	b.WriteString(fmt.Sprintf("- **Analysis:** %s\n", h.ID))
	if h.Vehicle != "" {
		b.WriteString(fmt.Sprintf("- **Vehicle:** %s\n", h.Vehicle))
	}
	if h.Scope != "" {
		b.WriteString(fmt.Sprintf("- **Scope:** %s\n", h.Scope))
	}
	b.WriteString(fmt.Sprintf("- **Status:** %s\n", label(title, string(h.Status))))
	b.WriteString(fmt.Sprintf("- **Current Step:** %s\n", label(title, string(h.CurrentStep))))
	b.WriteString(fmt.Sprintf("- **Generated:** %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04 MST")))
}

func (f *markdownFormat) writeStats(b *strings.Builder, title cases.Caser, rep *Report) {
	s := rep.Stats
	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("%d assets, %d threat scenarios, %d risks, %d treatments, %d goals.\n\n",
		s.Assets, s.Threats, s.Risks, s.Treatments, s.Goals))

	b.WriteString("| Risk Level | Count |\n|---|---|\n")
	for _, lc := range s.ByLevel {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", label(title, string(lc.Level)), lc.Count))
	}
	b.WriteString("\n")

	c := s.Coverage
	b.WriteString(fmt.Sprintf("Coverage: %s%% of assets rated, %s%% of threats rated, %s%% of risks treated, %s%% of treatments approved.\n\n",
		formatPercent(c.AssetsRated), formatPercent(c.ThreatsRated),
		formatPercent(c.RisksTreated), formatPercent(c.TreatmentsApproved)))
}

func (f *markdownFormat) writeAssets(b *strings.Builder, title cases.Caser, rep *Report) {
	if len(rep.Assets) == 0 {
		return
	}
	b.WriteString("## Assets\n\n")
	b.WriteString("| Name | Type | Criticality | Interfaces |\n|---|---|---|---|\n")
	for _, a := range rep.Assets {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			cell(a.Name), label(title, string(a.Type)), label(title, string(a.Criticality)),
			cell(strings.Join(a.Interfaces, ", "))))
	}
	b.WriteString("\n")
}

func (f *markdownFormat) writeSummaries(b *strings.Builder, title cases.Caser, rep *Report) {
	if len(rep.Summaries) == 0 {
		return
	}
	b.WriteString("## Asset Risk Posture\n\n")
	b.WriteString("| Asset | Threats | Risk Level | Score |\n|---|---|---|---|\n")
	for _, s := range rep.Summaries {
		level := label(title, string(s.Level))
		if s.Threats == 0 {
			level = "Not Assessed"
		}
		b.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
			cell(s.AssetName), s.Threats, level, formatScore(s.Score)))
	}
	b.WriteString("\n")
}

func (f *markdownFormat) writeRisks(b *strings.Builder, title cases.Caser, rep *Report) {
	if len(rep.Risks) == 0 {
		return
	}
	b.WriteString("## Risk Register\n\n")
	b.WriteString("| Asset | Threat | Category | Impact | Likelihood | Risk | Score |\n|---|---|---|---|---|---|---|\n")
	for _, r := range rep.Risks {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			cell(r.AssetName), cell(r.ThreatName), label(title, string(r.Category)),
			label(title, string(r.Impact)), label(title, string(r.Likelihood)),
			label(title, string(r.Level)), formatScore(r.Score)))
	}
	b.WriteString("\n")
}

func (f *markdownFormat) writeTreatments(b *strings.Builder, title cases.Caser, rep *Report) {
	if len(rep.Treatments) == 0 {
		return
	}
	b.WriteString("## Treatment Register\n\n")
	b.WriteString("| Asset | Threat | Decision | Residual Risk | Approval | Countermeasures |\n|---|---|---|---|---|---|\n")
	for _, t := range rep.Treatments {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			cell(t.AssetName), cell(t.ThreatName), label(title, string(t.Decision)),
			label(title, string(t.ResidualRisk)), label(title, string(t.Approval)),
			cell(strings.Join(t.Countermeasures, "; "))))
	}
	b.WriteString("\n")
}

func (f *markdownFormat) writeGoals(b *strings.Builder, title cases.Caser, rep *Report) {
	if len(rep.Goals) == 0 {
		return
	}
	b.WriteString("## Cybersecurity Goals\n\n")
	for _, g := range rep.Goals {
		b.WriteString(fmt.Sprintf("### %s\n\n", g.Title))
		if g.Description != "" {
			b.WriteString(g.Description + "\n\n")
		}
		b.WriteString(fmt.Sprintf("- **Asset:** %s\n", g.AssetName))
		b.WriteString(fmt.Sprintf("- **Property:** %s\n", label(title, string(g.Property))))
		if g.Verification != "" {
			b.WriteString(fmt.Sprintf("- **Verification:** %s\n", g.Verification))
		}
		b.WriteString("\n")
	}
}

// Name returns the format identifier.
func (f *markdownFormat) Name() string { return "markdown" }

// Description returns a human-readable description.
func (f *markdownFormat) Description() string {
	return "Human-readable Markdown report"
}

// Extension returns the file extension.
func (f *markdownFormat) Extension() string { return "md" }

// label renders an enum token as a title-cased phrase.
func label(title cases.Caser, s string) string {
	if s == "" {
		return ""
	}
	return title.String(strings.ReplaceAll(s, "_", " "))
}

// cell escapes pipe characters so free-text never breaks table layout.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
