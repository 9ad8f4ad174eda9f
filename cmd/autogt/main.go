// Package main is the entry point for the AutoGT CLI. AutoGT runs threat
// analysis and risk assessment (TARA) workflows for automotive systems per
// ISO/SAE 21434: asset definition through cybersecurity goals, with risk
// calculation, treatment planning, and report generation along the way.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/autogt/autogt/cmd/analysis"
	"github.com/autogt/autogt/cmd/assets"
	configcmd "github.com/autogt/autogt/cmd/config"
	"github.com/autogt/autogt/cmd/export"
	"github.com/autogt/autogt/cmd/list"
	"github.com/autogt/autogt/cmd/risks"
	"github.com/autogt/autogt/cmd/serve"
	"github.com/autogt/autogt/cmd/threats"
	"github.com/autogt/autogt/cmd/treatments"
	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	var (
		configFile  string
		logLevel    string
		logFormat   string
		showVersion bool
	)

	globalFlags := flag.NewFlagSet("autogt", flag.ExitOnError)
	globalFlags.StringVar(&configFile, "config", "", "Path to config file")
	globalFlags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	globalFlags.StringVar(&logFormat, "log-format", "", "Log format (text or json)")
	globalFlags.BoolVar(&showVersion, "version", false, "Show version information")

	if err := globalFlags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("autogt version %s (built %s)\n", version, buildTime) //nolint:forbidigo
		os.Exit(0)
	}

	// Subcommands resolve the config themselves; the global flag reaches
	// them through the environment.
	if configFile != "" {
		_ = os.Setenv("AUTOGT_CONFIG", configFile)
	}

	setupLogging(configFile, logLevel, logFormat)

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "analysis":
		if err := analysis.Run(commandArgs); err != nil {
			logger.Error("analysis command failed", "error", err)
			os.Exit(1)
		}
	case "assets":
		if err := assets.Run(commandArgs); err != nil {
			logger.Error("assets command failed", "error", err)
			os.Exit(1)
		}
	case "threats":
		if err := threats.Run(commandArgs); err != nil {
			logger.Error("threats command failed", "error", err)
			os.Exit(1)
		}
	case "risks":
		if err := risks.Run(commandArgs); err != nil {
			logger.Error("risks command failed", "error", err)
			os.Exit(1)
		}
	case "treatments":
		if err := treatments.Run(commandArgs); err != nil {
			logger.Error("treatments command failed", "error", err)
			os.Exit(1)
		}
	case "export":
		if err := export.Run(commandArgs); err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
	case "list":
		if err := list.Run(commandArgs); err != nil {
			logger.Error("list failed", "error", err)
			os.Exit(1)
		}
	case "config":
		if err := configcmd.Run(commandArgs); err != nil {
			logger.Error("config command failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		if err := serve.Run(commandArgs); err != nil {
			logger.Error("serve failed", "error", err)
			os.Exit(1)
		}
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setupLogging applies the flag values, falling back to the config file's
// logging section, then to info/text.
func setupLogging(configFile, level, format string) {
	if level == "" || format == "" {
		if cfg, err := config.Resolve(configFile); err == nil {
			if level == "" {
				level = cfg.Logging.Level
			}
			if format == "" {
				format = cfg.Logging.Format
			}
		}
	}
	if level == "" {
		level = "info"
	}
	if format == "" {
		format = "text"
	}
	logger.SetupLogger(level, format)
}

func printUsage() {
	//nolint:forbidigo
	fmt.Println(`AutoGT - automotive TARA workflows

Usage:
  autogt [global flags] <command> [command flags]

Commands:
  analysis     Create and run TARA analyses
  assets       Define and import assets
  threats      Generate and list threat scenarios
  risks        Calculate, aggregate, and browse risk values
  treatments   Plan and decide risk treatments
  export       Generate TARA reports
  list         List saved analysis snapshots
  config       Manage configuration files
  serve        Run the read-only HTTP API
  help         Show this help message

Global Flags:
  --config      Path to config file
  --log-level   Log level (debug, info, warn, error) (default: info)
  --log-format  Log format (text or json) (default: text)
  --version     Show version information

Examples:
  autogt analysis new --name "Gateway TARA" --vehicle EV-2027
  autogt assets import --analysis <id> --file assets.yaml
  autogt analysis run --latest
  autogt export run --analysis <id> --format xlsx

Use "autogt <command> --help" for more information about a command.`)
}
