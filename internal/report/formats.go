package report

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/autogt/autogt/pkg/logger"
)

// Format renders an assembled report in one output format.
type Format interface {
	// Generate writes the report to w.
	Generate(rep *Report, w io.Writer) error
	// Name returns the format identifier (e.g. "json", "xlsx").
	Name() string
	// Description returns a human-readable description of the format.
	Description() string
	// Extension returns the file extension without the leading dot.
	Extension() string
}

// FormatFactory creates instances of report formats.
type FormatFactory func(log logger.Logger) (Format, error)

var (
	formatRegistry = make(map[string]FormatFactory)
	registryMutex  sync.RWMutex
)

// RegisterFormat registers a report format factory under a name.
func RegisterFormat(name string, factory FormatFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("report: RegisterFormat factory is nil for format %q", name))
	}
	if _, dup := formatRegistry[name]; dup {
		panic(fmt.Sprintf("report: RegisterFormat called twice for format %q", name))
	}
	formatRegistry[name] = factory
}

// GetFormat creates an instance of the named report format.
func GetFormat(name string, log logger.Logger) (Format, error) {
	registryMutex.RLock()
	factory, exists := formatRegistry[name]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown report format: %s", name)
	}
	return factory(log)
}

// ListFormats returns all registered format names, sorted.
func ListFormats() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	formats := make([]string, 0, len(formatRegistry))
	for name := range formatRegistry {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// Register built-in formats during package initialization.
func init() {
	RegisterFormat("json", func(log logger.Logger) (Format, error) {
		return &jsonFormat{logger: log}, nil
	})
	RegisterFormat("yaml", func(log logger.Logger) (Format, error) {
		return &yamlFormat{logger: log}, nil
	})
	RegisterFormat("csv", func(log logger.Logger) (Format, error) {
		return &csvFormat{logger: log}, nil
	})
	RegisterFormat("markdown", func(log logger.Logger) (Format, error) {
		return &markdownFormat{logger: log}, nil
	})
	RegisterFormat("xlsx", func(log logger.Logger) (Format, error) {
		return &xlsxFormat{logger: log}, nil
	})
}
