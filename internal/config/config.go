// Package config provides configuration loading and validation for AutoGT.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/pathutil"
)

// Duration wraps time.Duration so YAML values like "120s" and "168h"
// parse directly.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration notation.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete AutoGT configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Risk       RiskConfig       `yaml:"risk"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Archive    ArchiveConfig    `yaml:"archive"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig locates the JSON artifact store.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// RiskConfig selects the calculation method and aggregation policy.
type RiskConfig struct {
	Method      string           `yaml:"method"`
	Thresholds  *ThresholdConfig `yaml:"thresholds,omitempty"`
	Aggregation string           `yaml:"aggregation"`
}

// ThresholdConfig carries custom level cut points for ISO21434_CUSTOM.
type ThresholdConfig struct {
	LowMax    float64 `yaml:"low_max"`
	MediumMax float64 `yaml:"medium_max"`
	HighMax   float64 `yaml:"high_max"`
}

// PipelineConfig tunes workflow execution.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// EnrichmentConfig controls threat enrichment.
type EnrichmentConfig struct {
	Strategy  string          `yaml:"strategy"`
	Assistant AssistantConfig `yaml:"assistant"`
	Cache     CacheConfig     `yaml:"cache"`
}

// AssistantConfig configures the external assistant driver. An empty
// command selects the built-in heuristic driver.
type AssistantConfig struct {
	Command string   `yaml:"command"`
	Timeout Duration `yaml:"timeout"`
}

// CacheConfig controls the enrichment result cache.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	TTL     Duration `yaml:"ttl"`
}

// ArchiveConfig configures S3 report archiving. An empty bucket disables
// archiving.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rate_limit"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Enrichment strategy names.
const (
	StrategyAll          = "all"
	StrategyCriticalOnly = "critical-only"
	StrategyHighImpact   = "high-impact"
	StrategySmart        = "smart"
)

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "~/.autogt/autogt.db"},
		Storage:  StorageConfig{Dir: "~/.autogt/analyses"},
		Risk: RiskConfig{
			Method:      risk.MethodISO21434,
			Aggregation: string(risk.PolicyMaximum),
		},
		Pipeline: PipelineConfig{Workers: 4},
		Enrichment: EnrichmentConfig{
			Strategy: StrategySmart,
			Assistant: AssistantConfig{
				Timeout: Duration(2 * time.Minute),
			},
			Cache: CacheConfig{
				Enabled: true,
				TTL:     Duration(168 * time.Hour),
			},
		},
		Archive: ArchiveConfig{Prefix: "autogt"},
		API:     APIConfig{Addr: "127.0.0.1:8422", RateLimit: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns the expanded default config file location.
func DefaultPath() (string, error) {
	return pathutil.ExpandHome("~/.autogt/config.yaml")
}

// Load reads and validates a YAML configuration file. A .env file in the
// working directory is loaded first so environment overrides apply in CI.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted source (config file)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.applyEnv()

	if err := config.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Resolve loads the configuration a command should use: an explicit path
// first, the AUTOGT_CONFIG environment variable next, the default location
// last. A missing file at the resolved path falls back to defaults.
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("AUTOGT_CONFIG")
	}
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return LoadOrDefault(path)
}

// LoadOrDefault behaves like Load but falls back to the default
// configuration when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = godotenv.Load()
		config := Default()
		config.applyEnv()
		if err := config.ExpandPaths(); err != nil {
			return nil, err
		}
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return config, nil
	}
	return Load(path)
}

// applyEnv overlays AUTOGT_* environment variables on the loaded values.
func (c *Config) applyEnv() {
	envOverride(&c.Database.Path, "AUTOGT_DATABASE_PATH")
	envOverride(&c.Storage.Dir, "AUTOGT_STORAGE_DIR")
	envOverride(&c.Archive.Bucket, "AUTOGT_ARCHIVE_BUCKET")
	envOverride(&c.Archive.Prefix, "AUTOGT_ARCHIVE_PREFIX")
	envOverride(&c.Enrichment.Assistant.Command, "AUTOGT_ASSISTANT_COMMAND")
	envOverride(&c.API.Addr, "AUTOGT_API_ADDR")
	envOverride(&c.Logging.Level, "AUTOGT_LOG_LEVEL")
	envOverride(&c.Logging.Format, "AUTOGT_LOG_FORMAT")
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// ExpandPaths resolves ~ in the database path and storage directory.
func (c *Config) ExpandPaths() error {
	path, err := pathutil.ExpandHome(c.Database.Path)
	if err != nil {
		return fmt.Errorf("expanding database path: %w", err)
	}
	c.Database.Path = path

	dir, err := pathutil.ExpandHome(c.Storage.Dir)
	if err != nil {
		return fmt.Errorf("expanding storage dir: %w", err)
	}
	c.Storage.Dir = dir

	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}

	if _, err := c.Risk.Matrix(); err != nil {
		return err
	}
	if _, err := risk.ParsePolicy(c.Risk.Aggregation); err != nil {
		return fmt.Errorf("risk.aggregation: %w", err)
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}

	switch c.Enrichment.Strategy {
	case StrategyAll, StrategyCriticalOnly, StrategyHighImpact, StrategySmart:
	default:
		return fmt.Errorf("unknown enrichment.strategy: %s", c.Enrichment.Strategy)
	}
	if c.Enrichment.Assistant.Timeout <= 0 {
		return fmt.Errorf("enrichment.assistant.timeout must be positive")
	}
	if c.Enrichment.Cache.Enabled && c.Enrichment.Cache.TTL <= 0 {
		return fmt.Errorf("enrichment.cache.ttl must be positive when the cache is enabled")
	}

	if c.Archive.Bucket != "" && c.Archive.Prefix == "" {
		return fmt.Errorf("archive.prefix is required when archive.bucket is set")
	}

	if c.API.Addr == "" {
		return fmt.Errorf("api.addr is required")
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("api.rate_limit must be positive, got %v", c.API.RateLimit)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging.format: %s", c.Logging.Format)
	}

	return nil
}

// Matrix builds the risk matrix the config selects.
func (r *RiskConfig) Matrix() (*risk.Matrix, error) {
	switch r.Method {
	case risk.MethodISO21434:
		return risk.ISO21434Standard(), nil
	case risk.MethodCustom:
		if r.Thresholds == nil {
			return nil, fmt.Errorf("risk.thresholds is required for method %s", risk.MethodCustom)
		}
		matrix, err := risk.WithCustomThresholds(risk.Thresholds{
			LowMax:    r.Thresholds.LowMax,
			MediumMax: r.Thresholds.MediumMax,
			HighMax:   r.Thresholds.HighMax,
		})
		if err != nil {
			return nil, fmt.Errorf("risk.thresholds: %w", err)
		}
		return matrix, nil
	default:
		return nil, fmt.Errorf("unknown risk.method: %s", r.Method)
	}
}

// Policy returns the parsed aggregation policy.
func (r *RiskConfig) Policy() (risk.Policy, error) {
	return risk.ParsePolicy(r.Aggregation)
}

// ArchiveEnabled reports whether S3 archiving is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Bucket != ""
}

// Write renders the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
