// Package list implements the list command for viewing saved analyses.
package list

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/storage"
	"github.com/autogt/autogt/pkg/logger"
)

// Options represents list command options.
type Options struct {
	Config  string
	Vehicle string
	Format  string
	Limit   int
}

// Run executes the list command.
func Run(args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.StringVar(&opts.Config, "config", "", "Path to config file")
	fs.StringVar(&opts.Vehicle, "vehicle", "", "Filter by vehicle program")
	fs.IntVar(&opts.Limit, "limit", 10, "Maximum number of analyses to show")
	fs.StringVar(&opts.Format, "format", "table", "Output format (table, json)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: autogt list [options]

List saved analysis snapshots, newest first.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  autogt list
  autogt list --vehicle EV-2027
  autogt list --limit 20
  autogt list --format json`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(opts.Config)
	if err != nil {
		return err
	}
	store := storage.New(cfg.Storage.Dir)

	analyses, err := store.ListAnalyses(opts.Vehicle, opts.Limit)
	if err != nil {
		return fmt.Errorf("listing analyses: %w", err)
	}

	if len(analyses) == 0 {
		if opts.Vehicle != "" {
			logger.Info("No analyses found for vehicle", "vehicle", opts.Vehicle)
		} else {
			logger.Info("No analyses found")
		}
		return nil
	}

	latest, err := store.FindLatestAnalysis()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("finding latest analysis: %w", err)
	}
	// FindLatestAnalysis returns a path; table rows carry directory names.
	if latest != "" {
		latest = filepath.Base(latest)
	}

	switch opts.Format {
	case "json":
		return displayJSON(analyses)
	default:
		return displayTable(analyses, latest)
	}
}

func displayTable(analyses []storage.AnalysisInfo, latest string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(w, " \tNAME\tVEHICLE\tSTATUS\tSTEP\tCOUNTS\tSAVED"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 90)); err != nil {
		return fmt.Errorf("writing separator: %w", err)
	}

	for _, info := range analyses {
		marker := " "
		if info.ID == latest {
			marker = "*"
		}

		counts := fmt.Sprintf("%da/%dt/%dr", info.Counts.Assets, info.Counts.Threats, info.Counts.Risks)
		if info.Counts.Goals > 0 {
			counts += fmt.Sprintf("/%dg", info.Counts.Goals)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			marker,
			info.Name,
			info.Vehicle,
			info.Status,
			info.CurrentStep,
			counts,
			formatTimeAgo(info.SavedAt),
		); err != nil {
			return fmt.Errorf("writing analysis entry: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table writer: %w", err)
	}

	fmt.Println("\n* marks the latest snapshot. Use 'autogt export run' to generate a report.")
	return nil
}

func displayJSON(analyses []storage.AnalysisInfo) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(analyses)
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}
