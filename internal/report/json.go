package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/autogt/autogt/pkg/logger"
)

// jsonFormat writes the report as indented JSON, the canonical machine
// interchange form.
type jsonFormat struct {
	logger logger.Logger
}

// Generate writes the report as JSON.
func (f *jsonFormat) Generate(rep *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}

// Name returns the format identifier.
func (f *jsonFormat) Name() string { return "json" }

// Description returns a human-readable description.
func (f *jsonFormat) Description() string {
	return "Complete report as indented JSON"
}

// Extension returns the file extension.
func (f *jsonFormat) Extension() string { return "json" }
