// Package analysis implements the analysis lifecycle commands: creating an
// analysis, inspecting its progress, and driving it through the TARA steps.
package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/enrichment"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/pipeline"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/storage"
	"github.com/autogt/autogt/internal/treatment"
	"github.com/autogt/autogt/internal/ui"
	"github.com/autogt/autogt/pkg/logger"
)

var (
	configFile string
	name       string
	vehicle    string
	scope      string
	analysisID string
	step       string
)

// NewAnalysisCommand creates the analysis command tree.
func NewAnalysisCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Create and advance TARA analyses",
		Long: `Manage the lifecycle of a TARA analysis.

An analysis starts as a draft with its assets as input, then moves through
the eight workflow steps: asset definition, impact rating, threat scenario,
attack path, feasibility rating, risk determination, treatment decision,
and goal setting.`,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	cmd.AddCommand(
		newNewCommand(),
		newStatusCommand(),
		newAdvanceCommand(),
		newCompleteCommand(),
		newRunCommand(),
	)
	return cmd
}

// Run executes the analysis command with the provided arguments.
func Run(args []string) error {
	cmd := NewAnalysisCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new analysis",
		Example: `  # Create an analysis for a vehicle platform
  autogt analysis new --name "Gateway TARA" --vehicle EV-2027 --scope "central gateway ECU"`,
		RunE: runNew,
	}

	cmd.Flags().StringVar(&name, "name", "", "Analysis name (required)")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "Vehicle platform identifier")
	cmd.Flags().StringVar(&scope, "scope", "", "Item definition or scope description")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	analysis := models.NewAnalysis(name, vehicle, scope)
	if err := db.CreateAnalysis(context.Background(), analysis); err != nil {
		return fmt.Errorf("creating analysis: %w", err)
	}

	fmt.Printf("Created analysis %s\n", analysis.ID)
	fmt.Printf("  Name:    %s\n", analysis.Name)
	if analysis.Vehicle != "" {
		fmt.Printf("  Vehicle: %s\n", analysis.Vehicle)
	}
	if analysis.Scope != "" {
		fmt.Printf("  Scope:   %s\n", analysis.Scope)
	}
	fmt.Println("\nNext: add assets with 'autogt assets add' or 'autogt assets import'.")
	return nil
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an analysis and its step progress",
		Example: `  autogt analysis status --id 2f9c...
  autogt analysis status --latest`,
		RunE: runStatus,
	}

	cmd.Flags().StringVar(&analysisID, "id", "", "Analysis ID (or use --latest)")
	cmd.Flags().Bool("latest", false, "Use the most recently created analysis")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	analysis, err := resolveAnalysis(ctx, cmd, db)
	if err != nil {
		return err
	}

	completed, total := analysis.Progress()
	fmt.Printf("Analysis %s\n", analysis.ID)
	fmt.Printf("  Name:     %s\n", analysis.Name)
	if analysis.Vehicle != "" {
		fmt.Printf("  Vehicle:  %s\n", analysis.Vehicle)
	}
	fmt.Printf("  Status:   %s\n", analysis.Status)
	fmt.Printf("  Progress: %d/%d steps\n\n", completed, total)

	for _, s := range models.OrderedTaraSteps() {
		marker := " "
		detail := ""
		if at, ok := analysis.CompletedSteps[s]; ok {
			marker = "✓"
			detail = at.Format(time.RFC3339)
		} else if s == analysis.CurrentStep {
			marker = "▸"
			detail = "next"
		}
		fmt.Printf("  %s %d. %-20s %s\n", marker, s.Ordinal(), ui.Label(s), detail)
	}

	counts, err := db.GetRiskCounts(ctx, analysis.ID)
	if err != nil {
		return fmt.Errorf("counting risks: %w", err)
	}
	if counts.Total > 0 {
		fmt.Printf("\n  Risks: %d total (very high %d, high %d, medium %d, low %d)\n",
			counts.Total, counts.VeryHigh, counts.High, counts.Medium, counts.Low)
	}
	return nil
}

func newAdvanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "advance",
		Short:   "Run the next incomplete workflow step",
		Example: `  autogt analysis advance --id 2f9c...`,
		RunE:    runAdvance,
	}

	cmd.Flags().StringVar(&analysisID, "id", "", "Analysis ID (required)")
	cmd.Flags().StringVar(&step, "step", "", "Re-run a specific step instead of the next one")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runAdvance(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	orch, err := buildOrchestrator(cfg, db)
	if err != nil {
		return err
	}

	if step != "" {
		target := models.TaraStep(step)
		if !models.IsValidTaraStep(target) {
			return fmt.Errorf("unknown step %q", step)
		}
		if err := orch.RunStep(ctx, analysisID, target); err != nil {
			return err
		}
		fmt.Printf("Step %s complete.\n", ui.Label(target))
		return nil
	}

	next, err := orch.RunNext(ctx, analysisID)
	if err != nil {
		return err
	}
	fmt.Printf("Step %s complete.\n", ui.Label(next))
	return nil
}

func newCompleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "complete",
		Short:   "Run all remaining workflow steps",
		Long:    "Run every incomplete step in order, then snapshot the analysis to the artifact store.",
		Example: `  autogt analysis complete --id 2f9c...`,
		RunE:    runComplete,
	}

	cmd.Flags().StringVar(&analysisID, "id", "", "Analysis ID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	orch, err := buildOrchestrator(cfg, db)
	if err != nil {
		return err
	}

	report, err := orch.Run(ctx, analysisID)
	if err != nil {
		return err
	}

	printRunSummary(report)
	return snapshot(ctx, cfg, db, analysisID)
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline with live progress",
		Long: `Run every incomplete step of the analysis. When stdout is a terminal a
live progress view is shown; otherwise plain log lines are emitted.`,
		Example: `  autogt analysis run --id 2f9c...
  autogt analysis run --latest`,
		RunE: runRun,
	}

	cmd.Flags().StringVar(&analysisID, "id", "", "Analysis ID (or use --latest)")
	cmd.Flags().Bool("latest", false, "Use the most recently created analysis")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	analysis, err := resolveAnalysis(ctx, cmd, db)
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, db)
	if err != nil {
		return err
	}

	if !isTerminal(os.Stdout) {
		report, err := orch.Run(ctx, analysis.ID)
		if err != nil {
			return err
		}
		printRunSummary(report)
		return snapshot(ctx, cfg, db, analysis.ID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		report *pipeline.Report
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = orch.Run(runCtx, analysis.ID)
	}()

	if err := ui.RunProgress(analysis.Name, orch.Events(), cancel); err != nil {
		return fmt.Errorf("progress view: %w", err)
	}
	<-done

	if runErr != nil {
		return runErr
	}
	printRunSummary(report)
	return snapshot(ctx, cfg, db, analysis.ID)
}

// resolveAnalysis returns the analysis named by --id, or the most recently
// created one when --latest is set.
func resolveAnalysis(ctx context.Context, cmd *cobra.Command, db *database.DB) (*models.Analysis, error) {
	latest, _ := cmd.Flags().GetBool("latest")
	if analysisID != "" {
		return db.GetAnalysis(ctx, analysisID)
	}
	if !latest {
		return nil, fmt.Errorf("--id or --latest is required")
	}

	analyses, err := db.ListAnalyses(ctx, database.AnalysisFilter{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	if len(analyses) == 0 {
		return nil, fmt.Errorf("no analyses found")
	}
	return analyses[0], nil
}

// buildOrchestrator wires the pipeline from configuration.
func buildOrchestrator(cfg *config.Config, db *database.DB) (*pipeline.Orchestrator, error) {
	log := logger.GetGlobalLogger()

	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Risk.Policy()
	if err != nil {
		return nil, err
	}

	store := storage.New(cfg.Storage.Dir)
	enricher, err := enrichment.FromConfig(cfg, store, log)
	if err != nil {
		return nil, fmt.Errorf("configuring enrichment: %w", err)
	}

	return pipeline.NewOrchestrator(pipeline.Deps{
		DB:       db,
		Engine:   risk.NewEngine(matrix),
		Policy:   policy,
		Enricher: enricher,
		Planner:  treatment.NewPlanner(treatment.DefaultKnowledgeBase(), matrix, policy, log),
		Logger:   log,
		Workers:  cfg.Pipeline.Workers,
	}), nil
}

// snapshot writes the full artifact bundle to the analysis store.
func snapshot(ctx context.Context, cfg *config.Config, db *database.DB, id string) error {
	analysis, err := db.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	assets, err := db.ListAssets(ctx, id)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	threats, err := db.ListThreats(ctx, id, database.ThreatFilter{})
	if err != nil {
		return fmt.Errorf("listing threats: %w", err)
	}
	risks, err := db.ListRiskValues(ctx, id, database.RiskFilter{})
	if err != nil {
		return fmt.Errorf("listing risks: %w", err)
	}
	treatments, err := db.ListTreatments(ctx, id, database.TreatmentFilter{})
	if err != nil {
		return fmt.Errorf("listing treatments: %w", err)
	}
	goals, err := db.ListGoals(ctx, id)
	if err != nil {
		return fmt.Errorf("listing goals: %w", err)
	}

	dir, err := storage.New(cfg.Storage.Dir).SaveBundle(&storage.Bundle{
		Analysis:   analysis,
		Assets:     assets,
		Threats:    threats,
		Risks:      risks,
		Treatments: treatments,
		Goals:      goals,
	})
	if err != nil {
		return fmt.Errorf("saving analysis bundle: %w", err)
	}

	fmt.Printf("\nArtifacts saved to: %s\n", dir)
	return nil
}

func printRunSummary(report *pipeline.Report) {
	fmt.Println("\nPipeline Summary:")
	for _, result := range report.Steps {
		switch {
		case result.Skipped:
			fmt.Printf("  ✓ %-20s already complete\n", ui.Label(result.Step))
		case result.Err != nil:
			fmt.Printf("  ✗ %-20s %v\n", ui.Label(result.Step), result.Err)
		default:
			fmt.Printf("  ✓ %-20s %d items", ui.Label(result.Step), result.Items)
			if result.Failed > 0 {
				fmt.Printf(" (%d failed)", result.Failed)
			}
			fmt.Printf(" in %s\n", result.Duration.Round(time.Millisecond))
		}
	}
	fmt.Printf("\nRun %s finished in %s\n",
		report.RunID, report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond))
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
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
