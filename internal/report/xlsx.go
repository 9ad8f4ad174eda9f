package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/autogt/autogt/pkg/logger"
)

// Sheet names of the workbook format.
const (
	sheetSummary    = "Summary"
	sheetRisks      = "Risk Register"
	sheetTreatments = "Treatments"
	sheetGoals      = "Goals"
)

// xlsxFormat writes an Excel workbook with summary and register sheets,
// the exchange format most OEM security audits ask for.
type xlsxFormat struct {
	logger logger.Logger
}

// Generate writes the report as an xlsx workbook.
func (f *xlsxFormat) Generate(rep *Report, w io.Writer) error {
	wb := excelize.NewFile()
	defer func() {
		if err := wb.Close(); err != nil {
			f.logger.Warn("Closing workbook", "error", err)
		}
	}()

	title := cases.Title(language.English)

	if err := wb.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	for _, name := range []string{sheetRisks, sheetTreatments, sheetGoals} {
		if _, err := wb.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	headerStyle, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.writeSummary(wb, title, rep); err != nil {
		return err
	}
	if err := f.writeRisks(wb, title, headerStyle, rep); err != nil {
		return err
	}
	if err := f.writeTreatments(wb, title, headerStyle, rep); err != nil {
		return err
	}
	if err := f.writeGoals(wb, title, headerStyle, rep); err != nil {
		return err
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func (f *xlsxFormat) writeSummary(wb *excelize.File, title cases.Caser, rep *Report) error {
	h := rep.Analysis
	rows := [][]any{
		{"Analysis", h.Name},
		{"ID", h.ID},
		{"Vehicle", h.Vehicle},
		{"Scope", h.Scope},
		{"Status", label(title, string(h.Status))},
		{"Current Step", label(title, string(h.CurrentStep))},
		{"Generated", rep.GeneratedAt.Format("2006-01-02 15:04 MST")},
		{},
		{"Assets", rep.Stats.Assets},
		{"Threat Scenarios", rep.Stats.Threats},
		{"Risks", rep.Stats.Risks},
		{"Treatments", rep.Stats.Treatments},
		{"Goals", rep.Stats.Goals},
		{},
		{"Risk Level", "Count"},
	}
	for _, lc := range rep.Stats.ByLevel {
		rows = append(rows, []any{label(title, string(lc.Level)), lc.Count})
	}
	c := rep.Stats.Coverage
	rows = append(rows,
		[]any{},
		[]any{"Assets Rated (%)", c.AssetsRated},
		[]any{"Threats Rated (%)", c.ThreatsRated},
		[]any{"Risks Treated (%)", c.RisksTreated},
		[]any{"Treatments Approved (%)", c.TreatmentsApproved},
	)

	for i, row := range rows {
		if err := writeRow(wb, sheetSummary, i+1, row); err != nil {
			return err
		}
	}
	if err := wb.SetColWidth(sheetSummary, "A", "A", 24); err != nil {
		return fmt.Errorf("sizing summary columns: %w", err)
	}
	return wb.SetColWidth(sheetSummary, "B", "B", 40)
}

func (f *xlsxFormat) writeRisks(wb *excelize.File, title cases.Caser, headerStyle int, rep *Report) error {
	header := []any{"Asset", "Threat", "Category", "Vector", "Impact", "Likelihood", "Risk Level", "Score", "Method"}
	if err := writeHeader(wb, sheetRisks, header, headerStyle); err != nil {
		return err
	}
	for i, r := range rep.Risks {
		row := []any{
			r.AssetName, r.ThreatName,
			label(title, string(r.Category)), label(title, string(r.Vector)),
			label(title, string(r.Impact)), label(title, string(r.Likelihood)),
			label(title, string(r.Level)), r.Score, r.Method,
		}
		if err := writeRow(wb, sheetRisks, i+2, row); err != nil {
			return err
		}
	}
	if err := wb.SetColWidth(sheetRisks, "A", "B", 28); err != nil {
		return fmt.Errorf("sizing register columns: %w", err)
	}
	return wb.SetPanes(sheetRisks, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

func (f *xlsxFormat) writeTreatments(wb *excelize.File, title cases.Caser, headerStyle int, rep *Report) error {
	header := []any{"Asset", "Threat", "Decision", "Original Risk", "Residual Risk", "Approval", "Cost", "Owner", "Countermeasures"}
	if err := writeHeader(wb, sheetTreatments, header, headerStyle); err != nil {
		return err
	}
	for i, t := range rep.Treatments {
		row := []any{
			t.AssetName, t.ThreatName, label(title, string(t.Decision)),
			label(title, string(t.OriginalRisk)), label(title, string(t.ResidualRisk)),
			label(title, string(t.Approval)), t.EstimatedCost, t.Owner,
			strings.Join(t.Countermeasures, "; "),
		}
		if err := writeRow(wb, sheetTreatments, i+2, row); err != nil {
			return err
		}
	}
	return wb.SetColWidth(sheetTreatments, "A", "B", 28)
}

func (f *xlsxFormat) writeGoals(wb *excelize.File, title cases.Caser, headerStyle int, rep *Report) error {
	header := []any{"Title", "Asset", "Property", "Verification", "Description"}
	if err := writeHeader(wb, sheetGoals, header, headerStyle); err != nil {
		return err
	}
	for i, g := range rep.Goals {
		row := []any{
			g.Title, g.AssetName, label(title, string(g.Property)),
			g.Verification, g.Description,
		}
		if err := writeRow(wb, sheetGoals, i+2, row); err != nil {
			return err
		}
	}
	return wb.SetColWidth(sheetGoals, "A", "A", 44)
}

// writeHeader writes and styles a register sheet's first row.
func writeHeader(wb *excelize.File, sheet string, header []any, style int) error {
	if err := writeRow(wb, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("locating header end: %w", err)
	}
	if err := wb.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("styling header of %s: %w", sheet, err)
	}
	return nil
}

// writeRow sets one row of cells starting at column A.
func writeRow(wb *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("locating cell: %w", err)
		}
		if err := wb.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("setting %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// Name returns the format identifier.
func (f *xlsxFormat) Name() string { return "xlsx" }

// Description returns a human-readable description.
func (f *xlsxFormat) Description() string {
	return "Excel workbook with summary and register sheets"
}

// Extension returns the file extension.
func (f *xlsxFormat) Extension() string { return "xlsx" }
