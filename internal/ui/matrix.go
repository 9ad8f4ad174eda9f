package ui

import (
	"fmt"
	"strings"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

const (
	matrixRowLabel = 13
	matrixCell     = 18
)

// RenderMatrix draws the risk matrix as a colored grid: impact rows worst
// first, likelihood columns ascending, each cell showing the level and its
// score in the level's color.
func RenderMatrix(m *risk.Matrix) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Risk Matrix (" + m.Method() + ")"))
	b.WriteString("\n\n")

	b.WriteString(padRight("impact", matrixRowLabel))
	for _, likelihood := range models.ValidLikelihoodLevels() {
		b.WriteString(padRight(Label(likelihood), matrixCell))
	}
	b.WriteString("\n")

	impacts := models.ValidImpactLevels()
	for i := len(impacts) - 1; i >= 0; i-- {
		impact := impacts[i]
		b.WriteString(padRight(Label(impact), matrixRowLabel))
		for _, likelihood := range models.ValidLikelihoodLevels() {
			level, err := m.Level(impact, likelihood)
			if err != nil {
				b.WriteString(padRight("?", matrixCell))
				continue
			}
			score, _ := m.Score(impact, likelihood)
			cell := padRight(fmt.Sprintf("%s (%.2f)", Label(level), score), matrixCell)
			b.WriteString(RiskLevelStyle(level).Render(cell))
		}
		b.WriteString("\n")
	}

	t := m.Thresholds()
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(fmt.Sprintf(
		"Thresholds: low <= %.2f < medium <= %.2f < high <= %.2f < very high",
		t.LowMax, t.MediumMax, t.HighMax)))
	b.WriteString("\n")

	return b.String()
}
