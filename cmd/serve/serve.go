// Package serve implements the serve command running the read-only HTTP API.
package serve

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/autogt/autogt/internal/api"
	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/pkg/logger"
)

// Run executes the serve command.
func Run(args []string) error {
	var configFile string
	var addr string
	var rateLimit float64

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&configFile, "config", "", "Path to config file")
	fs.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	fs.Float64Var(&rateLimit, "rate-limit", -1, "Requests per second, 0 disables limiting (overrides config)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: autogt serve [options]

Serve the read-only HTTP API over the analysis database.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  autogt serve
  autogt serve --addr :9090 --rate-limit 50`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(configFile)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.API.Addr
	}
	if addr == "" {
		addr = ":8080"
	}
	if rateLimit < 0 {
		rateLimit = cfg.API.RateLimit
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return fmt.Errorf("building risk matrix: %w", err)
	}
	policy, err := cfg.Risk.Policy()
	if err != nil {
		return fmt.Errorf("resolving aggregation policy: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(db, risk.NewEngine(matrix), policy, addr, rateLimit, logger.GetGlobalLogger())
	return server.Run(ctx)
}
