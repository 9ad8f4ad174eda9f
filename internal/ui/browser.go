package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// Browser is the read-only risk register view for one analysis. Rows are
// ordered most severe first, matching the database ordering.
type Browser struct {
	db          *database.DB
	analysisID  string
	errorMsg    string
	risks       []*risk.Value
	assetNames  map[string]string
	threatNames map[string]string
	cursor      int
	width       int
	height      int
	loading     bool
	detail      bool
}

// NewBrowser creates a browser over the given analysis.
func NewBrowser(db *database.DB, analysisID string) *Browser {
	return &Browser{
		db:          db,
		analysisID:  analysisID,
		risks:       []*risk.Value{},
		assetNames:  map[string]string{},
		threatNames: map[string]string{},
		loading:     true,
	}
}

// RunBrowser opens the risk browser in the alternate screen and blocks
// until the user quits.
func RunBrowser(db *database.DB, analysisID string) error {
	_, err := tea.NewProgram(NewBrowser(db, analysisID), tea.WithAltScreen()).Run()
	return err
}

// LoadRisksMsg is sent when risk values are loaded from the database.
type LoadRisksMsg struct {
	Err         error
	Risks       []*risk.Value
	AssetNames  map[string]string
	ThreatNames map[string]string
}

// Init kicks off the initial load.
func (b *Browser) Init() tea.Cmd {
	return b.loadRisks
}

// loadRisks loads risk values plus the asset and threat names they reference.
func (b *Browser) loadRisks() tea.Msg {
	if b.db == nil {
		return LoadRisksMsg{Err: fmt.Errorf("database not initialized")}
	}

	ctx := context.Background()

	risks, err := b.db.ListRiskValues(ctx, b.analysisID, database.RiskFilter{Limit: 1000})
	if err != nil {
		return LoadRisksMsg{Err: fmt.Errorf("loading risk values: %w", err)}
	}

	assets, err := b.db.ListAssets(ctx, b.analysisID)
	if err != nil {
		return LoadRisksMsg{Err: fmt.Errorf("loading assets: %w", err)}
	}
	assetNames := make(map[string]string, len(assets))
	for _, asset := range assets {
		assetNames[asset.ID] = asset.Name
	}

	threats, err := b.db.ListThreats(ctx, b.analysisID, database.ThreatFilter{})
	if err != nil {
		return LoadRisksMsg{Err: fmt.Errorf("loading threat scenarios: %w", err)}
	}
	threatNames := make(map[string]string, len(threats))
	for _, threat := range threats {
		threatNames[threat.ID] = threat.Name
	}

	return LoadRisksMsg{Risks: risks, AssetNames: assetNames, ThreatNames: threatNames}
}

// Update handles browser updates.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil

	case LoadRisksMsg:
		b.loading = false
		if msg.Err != nil {
			b.errorMsg = msg.Err.Error()
			return b, nil
		}
		b.errorMsg = ""
		b.risks = msg.Risks
		b.assetNames = msg.AssetNames
		b.threatNames = msg.ThreatNames
		if len(b.risks) > 0 && b.cursor >= len(b.risks) {
			b.cursor = len(b.risks) - 1
		}
		return b, nil

	case tea.KeyMsg:
		if b.loading {
			return b, nil
		}

		switch msg.String() {
		case "ctrl+c":
			return b, tea.Quit
		case "q", "esc":
			if b.detail {
				b.detail = false
				return b, nil
			}
			return b, tea.Quit
		case "j", "down":
			if b.cursor < len(b.risks)-1 {
				b.cursor++
			}
		case "k", "up":
			if b.cursor > 0 {
				b.cursor--
			}
		case "g":
			b.cursor = 0
		case "G":
			if len(b.risks) > 0 {
				b.cursor = len(b.risks) - 1
			}
		case "enter":
			if b.cursor < len(b.risks) {
				b.detail = !b.detail
			}
		case "R":
			b.loading = true
			b.detail = false
			return b, b.loadRisks
		}
	}
	return b, nil
}

// View renders the risk register.
func (b *Browser) View() string {
	var sb strings.Builder

	title := TitleStyle.Render("Risk Register")
	sb.WriteString(lipgloss.PlaceHorizontal(b.width, lipgloss.Center, title))
	sb.WriteString("\n\n")

	counts := b.stats()
	summary := fmt.Sprintf(
		"Total: %d | Very High: %s | High: %s | Medium: %s | Low: %s",
		counts.Total,
		b.colorCount(models.RiskVeryHigh, counts.VeryHigh),
		b.colorCount(models.RiskHigh, counts.High),
		b.colorCount(models.RiskMedium, counts.Medium),
		b.colorCount(models.RiskLow, counts.Low),
	)
	sb.WriteString(PanelStyle.Width(b.width - 4).Render(summary))
	sb.WriteString("\n\n")

	switch {
	case b.loading:
		sb.WriteString(lipgloss.PlaceHorizontal(b.width, lipgloss.Center, "Loading risk values..."))
	case b.errorMsg != "":
		sb.WriteString(lipgloss.PlaceHorizontal(b.width, lipgloss.Center, ErrorStyle.Render("Error: "+b.errorMsg)))
	case len(b.risks) == 0:
		sb.WriteString(lipgloss.PlaceHorizontal(b.width, lipgloss.Center, "No risk values to display"))
	default:
		b.renderRows(&sb)
	}

	if b.detail && b.cursor < len(b.risks) {
		sb.WriteString("\n")
		sb.WriteString(b.renderDetail(b.risks[b.cursor]))
	}

	sb.WriteString("\n\n")
	help := HelpStyle.Render("Navigate: j/k • Top/Bottom: g/G • Details: Enter • Refresh: R • Quit: q")
	sb.WriteString(lipgloss.PlaceHorizontal(b.width, lipgloss.Center, help))

	return sb.String()
}

// renderRows writes the table header and one row per risk value.
func (b *Browser) renderRows(sb *strings.Builder) {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333"))

	headers := []string{
		padRight("Level", 11),
		padRight("Score", 6),
		padRight("Asset", 24),
		padRight("Threat", 44),
	}

	sb.WriteString("  ")
	sb.WriteString(headerStyle.Render(strings.Join(headers, " ")))
	sb.WriteString("\n\n")

	for i, value := range b.risks {
		cursor := "  "
		style := NormalItemStyle
		if b.cursor == i {
			cursor = "▸ "
			style = SelectedItemStyle
		}

		level := RiskLevelStyle(value.RiskLevel).Render(padRight(Label(value.RiskLevel), 11))
		row := fmt.Sprintf("%s%s %s %s %s",
			cursor,
			level,
			padRight(fmt.Sprintf("%.2f", value.RiskScore), 6),
			padRight(b.assetName(value.AssetID), 24),
			padRight(b.threatName(value.ThreatID), 44),
		)

		sb.WriteString(style.Render(row))
		sb.WriteString("\n")

		if b.height > 0 && i > b.height-15 {
			remaining := len(b.risks) - i - 1
			sb.WriteString(HelpStyle.Render(fmt.Sprintf("  ... and %d more risk values", remaining)))
			break
		}
	}
}

// renderDetail shows the selected value's full derivation.
func (b *Browser) renderDetail(value *risk.Value) string {
	lines := []string{
		fmt.Sprintf("Risk:       %s (%.2f)", Label(value.RiskLevel), value.RiskScore),
		fmt.Sprintf("Asset:      %s", b.assetName(value.AssetID)),
		fmt.Sprintf("Threat:     %s", b.threatName(value.ThreatID)),
		fmt.Sprintf("Impact:     %s", Label(value.ImpactLevel)),
		fmt.Sprintf("Likelihood: %s", Label(value.LikelihoodLevel)),
		fmt.Sprintf("Method:     %s", value.Method),
	}
	if value.Justification != "" {
		lines = append(lines, "", value.Justification)
	}
	return PanelStyle.Width(b.width - 4).Render(strings.Join(lines, "\n"))
}

// stats tallies loaded risk values per level.
func (b *Browser) stats() database.RiskCounts {
	counts := database.RiskCounts{Total: len(b.risks)}
	for _, value := range b.risks {
		switch value.RiskLevel {
		case models.RiskVeryHigh:
			counts.VeryHigh++
		case models.RiskHigh:
			counts.High++
		case models.RiskMedium:
			counts.Medium++
		case models.RiskLow:
			counts.Low++
		}
	}
	return counts
}

// colorCount renders a count in its level's color.
func (b *Browser) colorCount(level models.RiskLevel, count int) string {
	return lipgloss.NewStyle().Foreground(RiskLevelColor(level)).Render(fmt.Sprintf("%d", count))
}

func (b *Browser) assetName(id string) string {
	if name, ok := b.assetNames[id]; ok {
		return name
	}
	return id
}

func (b *Browser) threatName(id string) string {
	if name, ok := b.threatNames[id]; ok {
		return name
	}
	return id
}
