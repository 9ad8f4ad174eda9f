// Package export implements report generation commands.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/report"
	"github.com/autogt/autogt/internal/report/archive"
	"github.com/autogt/autogt/pkg/logger"
	"github.com/autogt/autogt/pkg/pathutil"
)

var (
	configFile string
	analysisID string
	formatName string
	outputPath string
	doArchive  bool
)

// NewExportCommand creates the export command tree.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate TARA reports",
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	cmd.AddCommand(newRunCommand(), newFormatsCommand())
	return cmd
}

// Run executes the export command with the provided arguments.
func Run(args []string) error {
	cmd := NewExportCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a report for an analysis",
		Long: `Assemble the full TARA report for an analysis and render it in the chosen
format. With --archive the rendered report is also uploaded to the
configured S3 bucket.`,
		Example: `  autogt export run --analysis 2f9c...
  autogt export run --analysis 2f9c... --format xlsx --output tara.xlsx
  autogt export run --analysis 2f9c... --format json --archive`,
		RunE: runExport,
	}

	cmd.Flags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	cmd.Flags().StringVarP(&formatName, "format", "f", "markdown", "Report format (see 'autogt export formats')")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default tara-<analysis>.<ext>)")
	cmd.Flags().BoolVar(&doArchive, "archive", false, "Upload the report to the configured S3 bucket")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	log := logger.GetGlobalLogger()

	if doArchive && !cfg.ArchiveEnabled() {
		return fmt.Errorf("archiving is not configured; set archive.bucket in the config file")
	}

	format, err := report.GetFormat(formatName, log)
	if err != nil {
		return err
	}

	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return fmt.Errorf("building risk matrix: %w", err)
	}
	policy, err := cfg.Risk.Policy()
	if err != nil {
		return fmt.Errorf("resolving aggregation policy: %w", err)
	}

	rep, err := report.NewBuilder(db, matrix, policy, log).Build(ctx, analysisID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := format.Generate(rep, &buf); err != nil {
		return fmt.Errorf("generating %s report: %w", format.Name(), err)
	}

	path := outputPath
	if path == "" {
		path = fmt.Sprintf("tara-%s.%s", analysisID, format.Extension())
	}
	path, err = pathutil.ValidateOutputPath(path)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("Report written to %s (%d bytes)\n", path, buf.Len())

	if doArchive {
		store, err := archive.New(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, log)
		if err != nil {
			return fmt.Errorf("configuring archive: %w", err)
		}
		name := filepath.Base(path)
		bundle, err := store.Upload(ctx, analysisID, []archive.File{{
			Name:        name,
			ContentType: archive.ContentTypeFor(name),
			Body:        buf.Bytes(),
		}})
		if err != nil {
			return fmt.Errorf("archiving report: %w", err)
		}
		fmt.Printf("Archived to s3://%s/%s\n", cfg.Archive.Bucket, bundle)
	}
	return nil
}

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the available report formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.GetGlobalLogger()
			fmt.Println("Available report formats:")
			for _, name := range report.ListFormats() {
				format, err := report.GetFormat(name, log)
				if err != nil {
					return err
				}
				fmt.Printf("  %-10s %s\n", name, format.Description())
			}
			return nil
		},
	}
}

// open resolves configuration and opens the analysis database.
func open() (*config.Config, *database.DB, error) {
	cfg, err := config.Resolve(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, db, nil
}
