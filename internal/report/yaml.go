package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/autogt/autogt/pkg/logger"
)

// yamlFormat writes the report as YAML, matching the asset import document
// style so exports can feed other analyses.
type yamlFormat struct {
	logger logger.Logger
}

// Generate writes the report as YAML.
func (f *yamlFormat) Generate(rep *Report, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encoding YAML report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing YAML encoder: %w", err)
	}
	return nil
}

// Name returns the format identifier.
func (f *yamlFormat) Name() string { return "yaml" }

// Description returns a human-readable description.
func (f *yamlFormat) Description() string {
	return "Complete report as YAML"
}

// Extension returns the file extension.
func (f *yamlFormat) Extension() string { return "yaml" }
