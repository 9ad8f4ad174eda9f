// Package ui provides the terminal surfaces of AutoGT: the pipeline
// progress view, the read-only risk browser, and lipgloss rendering of the
// risk matrix.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/autogt/autogt/internal/models"
)

// Risk level colors.
var (
	VeryHighColor = lipgloss.Color("#FF0000")
	HighColor     = lipgloss.Color("#FFA500")
	MediumColor   = lipgloss.Color("#FFFF00")
	LowColor      = lipgloss.Color("#0000FF")
	NeutralColor  = lipgloss.Color("#808080")
)

// Base styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginBottom(1)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00FFFF")).
				Bold(true)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#808080")).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(1, 2)
)

// RiskLevelColor maps a risk level onto its display color.
func RiskLevelColor(level models.RiskLevel) lipgloss.Color {
	switch level {
	case models.RiskVeryHigh:
		return VeryHighColor
	case models.RiskHigh:
		return HighColor
	case models.RiskMedium:
		return MediumColor
	case models.RiskLow:
		return LowColor
	default:
		return NeutralColor
	}
}

// RiskLevelStyle returns a bold style in the level's color.
func RiskLevelStyle(level models.RiskLevel) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(RiskLevelColor(level)).Bold(true)
}

// Label turns an enum value like "very_high" into "very high".
func Label[T ~string](v T) string {
	return strings.ReplaceAll(string(v), "_", " ")
}

// padRight pads or truncates a string to a fixed width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width-1] + "…"
	}
	return s + strings.Repeat(" ", width-len(s))
}
