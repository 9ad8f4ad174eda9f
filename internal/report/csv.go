package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/autogt/autogt/pkg/logger"
)

// csvHeader is the fixed risk register column set. Spreadsheet pivots
// depend on the order staying stable.
var csvHeader = []string{
	"risk_id", "asset", "threat", "category", "vector",
	"impact", "likelihood", "risk_level", "risk_score",
	"decision", "residual_risk",
}

// csvFormat writes the risk register as CSV, one row per calculated risk
// with its treatment decision joined in.
type csvFormat struct {
	logger logger.Logger
}

// Generate writes the risk register as CSV.
func (f *csvFormat) Generate(rep *Report, w io.Writer) error {
	decisionByRisk := make(map[string]TreatmentRow, len(rep.Treatments))
	for _, t := range rep.Treatments {
		decisionByRisk[t.RiskID] = t
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, row := range rep.Risks {
		record := []string{
			row.ID,
			row.AssetName,
			row.ThreatName,
			string(row.Category),
			string(row.Vector),
			string(row.Impact),
			string(row.Likelihood),
			string(row.Level),
			strconv.FormatFloat(row.Score, 'f', -1, 64),
			"",
			"",
		}
		if t, ok := decisionByRisk[row.ID]; ok {
			record[9] = string(t.Decision)
			record[10] = string(t.ResidualRisk)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV row for risk %s: %w", row.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV report: %w", err)
	}
	return nil
}

// Name returns the format identifier.
func (f *csvFormat) Name() string { return "csv" }

// Description returns a human-readable description.
func (f *csvFormat) Description() string {
	return "Risk register as CSV: " + strings.Join(csvHeader, ", ")
}

// Extension returns the file extension.
func (f *csvFormat) Extension() string { return "csv" }
