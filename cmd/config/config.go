// Package config implements the config command for managing AutoGT
// configuration files.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/pathutil"
)

// Run executes the config command.
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, validate, show")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "init":
		return runInit(subArgs)
	case "validate":
		return runValidate(subArgs)
	case "show":
		return runShow(subArgs)
	default:
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
}

func runInit(args []string) error {
	var path string
	var force bool

	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	fs.StringVar(&path, "path", "", "Where to write the config (default ~/.autogt/config.yaml)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing file")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: autogt config init [options]

Write a starter configuration file with the default settings.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  autogt config init
  autogt config init --path ./autogt.yaml`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving default config path: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", path)
	}

	if err := config.Default().Write(path); err != nil {
		return err
	}
	fmt.Printf("Wrote starter configuration to %s\n", path)
	fmt.Println("Edit it, then check with 'autogt config validate'.")
	return nil
}

func runValidate(args []string) error {
	var configFile string

	fs := flag.NewFlagSet("config validate", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Configuration file to validate (required)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: autogt config validate [options]

Validate an AutoGT configuration file.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  autogt config validate --config ~/.autogt/config.yaml`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if configFile == "" {
		return fmt.Errorf("--config flag is required")
	}

	path, err := pathutil.ValidateConfigPath(configFile)
	if err != nil {
		return err
	}

	fmt.Printf("Validating configuration: %s\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	printSummary(cfg)

	fmt.Println("\nConfiguration is valid.")
	return nil
}

func runShow(args []string) error {
	var configFile string

	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Configuration file (default: resolved like every command)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: autogt config show [options]

Print the effective configuration after defaults and file merging.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(configFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func printSummaryLine(label, value string) {
	fmt.Printf("   %s: %s\n", label, value)
}

func printSummary(cfg *config.Config) {
	fmt.Println("Locations:")
	printSummaryLine("Database", cfg.Database.Path)
	printSummaryLine("Artifacts", cfg.Storage.Dir)

	fmt.Println("\nRisk:")
	printSummaryLine("Method", cfg.Risk.Method)
	printSummaryLine("Aggregation", cfg.Risk.Aggregation)
	if cfg.Risk.Method == risk.MethodCustom && cfg.Risk.Thresholds != nil {
		printSummaryLine("Thresholds", fmt.Sprintf("low <= %.2f < medium <= %.2f < high <= %.2f",
			cfg.Risk.Thresholds.LowMax, cfg.Risk.Thresholds.MediumMax, cfg.Risk.Thresholds.HighMax))
	}

	fmt.Println("\nEnrichment:")
	printSummaryLine("Strategy", cfg.Enrichment.Strategy)
	driver := "heuristic (built-in)"
	if cfg.Enrichment.Assistant.Command != "" {
		driver = cfg.Enrichment.Assistant.Command
	}
	printSummaryLine("Driver", driver)
	cache := "disabled"
	if cfg.Enrichment.Cache.Enabled {
		cache = fmt.Sprintf("enabled, ttl %s", cfg.Enrichment.Cache.TTL.Std())
	}
	printSummaryLine("Cache", cache)

	fmt.Println("\nPipeline:")
	printSummaryLine("Workers", fmt.Sprintf("%d", cfg.Pipeline.Workers))

	if cfg.ArchiveEnabled() {
		fmt.Println("\nArchive:")
		printSummaryLine("Bucket", cfg.Archive.Bucket)
		printSummaryLine("Prefix", cfg.Archive.Prefix)
	}

	if cfg.API.Addr != "" {
		fmt.Println("\nAPI:")
		printSummaryLine("Address", cfg.API.Addr)
		if cfg.API.RateLimit > 0 {
			printSummaryLine("Rate limit", fmt.Sprintf("%.0f req/s", cfg.API.RateLimit))
		}
	}
}
