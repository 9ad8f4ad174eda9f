// Package risks implements risk determination commands: calculation,
// recalculation, aggregation, and the interactive register browser.
package risks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
	"github.com/autogt/autogt/internal/ui"
	"github.com/autogt/autogt/pkg/logger"
)

var (
	configFile string
	analysisID string
	threatID   string
	assetID    string
	levelName  string
	policyName string
	lowMax     float64
	mediumMax  float64
	highMax    float64
)

// NewRisksCommand creates the risks command tree.
func NewRisksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risks",
		Short: "Calculate and inspect risk values",
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")

	cmd.AddCommand(
		newCalculateCommand(),
		newRecalculateCommand(),
		newAggregateCommand(),
		newListCommand(),
		newBrowseCommand(),
		newMatrixCommand(),
	)
	return cmd
}

// Run executes the risks command with the provided arguments.
func Run(args []string) error {
	cmd := NewRisksCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newCalculateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Derive risk values from stored impact and feasibility ratings",
		Long: `Derive a risk value for every rated threat scenario of the analysis, or
for a single scenario when --threat is given. Each value pairs the asset's
impact rating with the threat's attack feasibility rating through the
configured risk matrix.`,
		Example: `  autogt risks calculate --analysis 2f9c...
  autogt risks calculate --analysis 2f9c... --threat 81d0...`,
		RunE: runCalculate,
	}

	cmd.Flags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	cmd.Flags().StringVar(&threatID, "threat", "", "Calculate for a single threat scenario")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runCalculate(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	if _, err := db.GetAnalysis(ctx, analysisID); err != nil {
		return err
	}

	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return fmt.Errorf("building risk matrix: %w", err)
	}
	engine := risk.NewEngine(matrix)

	threats, err := db.ListThreats(ctx, analysisID, database.ThreatFilter{})
	if err != nil {
		return fmt.Errorf("listing threats: %w", err)
	}
	if threatID != "" {
		threats = filterThreat(threats, threatID)
		if len(threats) == 0 {
			return fmt.Errorf("threat %s not found in analysis %s", threatID, analysisID)
		}
	}
	if len(threats) == 0 {
		return fmt.Errorf("analysis %s has no threat scenarios", analysisID)
	}

	impacts, err := db.ListImpactRatings(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing impact ratings: %w", err)
	}
	impactByAsset := make(map[string]*models.ImpactRating, len(impacts))
	for _, rating := range impacts {
		impactByAsset[rating.AssetID] = rating
	}

	feasibilities, err := db.ListFeasibilityRatings(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing feasibility ratings: %w", err)
	}
	feasibilityByThreat := make(map[string]*models.FeasibilityRating, len(feasibilities))
	for _, rating := range feasibilities {
		feasibilityByThreat[rating.ThreatID] = rating
	}

	calculated, failed := 0, 0
	for _, threat := range threats {
		value, err := engine.Calculate(impactByAsset[threat.AssetID], feasibilityByThreat[threat.ID])
		if err != nil {
			failed++
			logger.GetGlobalLogger().Warn("Risk calculation failed",
				"threat_id", threat.ID, "error", err)
			continue
		}
		if err := db.SaveRiskValue(ctx, value); err != nil {
			return fmt.Errorf("saving risk value for threat %s: %w", threat.ID, err)
		}
		calculated++
		if threatID != "" {
			fmt.Printf("Risk %s: %s (score %.3f, impact %s, likelihood %s)\n",
				value.ID, value.RiskLevel, value.RiskScore, value.ImpactLevel, value.LikelihoodLevel)
		}
	}

	fmt.Printf("Calculated %d risk values", calculated)
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}

func filterThreat(threats []*models.ThreatScenario, id string) []*models.ThreatScenario {
	for _, threat := range threats {
		if threat.ID == id {
			return []*models.ThreatScenario{threat}
		}
	}
	return nil
}

func newRecalculateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Re-derive stored risk values from current ratings",
		Long: `Re-derive every stored risk value from the ratings it references,
preserving analyst justifications. Values whose impact or feasibility
rating no longer exists are skipped rather than failing the batch.`,
		Example: `  autogt risks recalculate --analysis 2f9c...`,
		RunE:    runRecalculate,
	}

	cmd.Flags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runRecalculate(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	if _, err := db.GetAnalysis(ctx, analysisID); err != nil {
		return err
	}

	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return fmt.Errorf("building risk matrix: %w", err)
	}
	engine := risk.NewEngine(matrix)

	values, err := db.ListRiskValues(ctx, analysisID, database.RiskFilter{})
	if err != nil {
		return fmt.Errorf("listing risk values: %w", err)
	}
	if len(values) == 0 {
		fmt.Println("No risk values to recalculate.")
		return nil
	}

	impacts, err := db.ListImpactRatings(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing impact ratings: %w", err)
	}
	impactByAsset := make(map[string]*models.ImpactRating, len(impacts))
	for _, rating := range impacts {
		impactByAsset[rating.AssetID] = rating
	}

	feasibilities, err := db.ListFeasibilityRatings(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing feasibility ratings: %w", err)
	}
	feasibilityByThreat := make(map[string]*models.FeasibilityRating, len(feasibilities))
	for _, rating := range feasibilities {
		feasibilityByThreat[rating.ThreatID] = rating
	}

	recalculated, skipped := 0, 0
	for _, value := range values {
		impact := impactByAsset[value.AssetID]
		feasibility := feasibilityByThreat[value.ThreatID]
		if impact == nil || feasibility == nil {
			skipped++
			continue
		}

		fresh, err := engine.Recalculate(value, impact, feasibility)
		if err != nil {
			return fmt.Errorf("recalculating risk %s: %w", value.ID, err)
		}
		if err := db.SaveRiskValue(ctx, fresh); err != nil {
			return fmt.Errorf("saving risk %s: %w", value.ID, err)
		}
		recalculated++
	}

	fmt.Printf("Recalculated %d risk values", recalculated)
	if skipped > 0 {
		fmt.Printf(" (%d skipped, ratings missing)", skipped)
	}
	fmt.Println()
	return nil
}

func newAggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Combine risk values per asset under an aggregation policy",
		Example: `  autogt risks aggregate --analysis 2f9c...
  autogt risks aggregate --analysis 2f9c... --asset 4ab1... --policy weighted`,
		RunE: runAggregate,
	}

	cmd.Flags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	cmd.Flags().StringVar(&assetID, "asset", "", "Aggregate a single asset")
	cmd.Flags().StringVar(&policyName, "policy", "", "Aggregation policy: maximum, average, weighted (default from config)")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return fmt.Errorf("building risk matrix: %w", err)
	}

	policy, err := cfg.Risk.Policy()
	if err != nil {
		return fmt.Errorf("resolving aggregation policy: %w", err)
	}
	if policyName != "" {
		policy, err = risk.ParsePolicy(policyName)
		if err != nil {
			return err
		}
	}

	filter := database.RiskFilter{}
	if assetID != "" {
		filter.AssetID = &assetID
	}
	values, err := db.ListRiskValues(ctx, analysisID, filter)
	if err != nil {
		return fmt.Errorf("listing risk values: %w", err)
	}
	if len(values) == 0 {
		fmt.Println("No risk values to aggregate.")
		return nil
	}

	assets, err := db.ListAssets(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	names := make(map[string]string, len(assets))
	for _, asset := range assets {
		names[asset.ID] = asset.Name
	}

	byAsset := make(map[string][]*risk.Value)
	var order []string
	for _, value := range values {
		if _, seen := byAsset[value.AssetID]; !seen {
			order = append(order, value.AssetID)
		}
		byAsset[value.AssetID] = append(byAsset[value.AssetID], value)
	}

	aggregator := risk.NewAggregator(matrix)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tLEVEL\tSCORE\tTHREATS\tPOLICY")
	for _, id := range order {
		summary, err := aggregator.Aggregate(policy, byAsset[id])
		if err != nil {
			return fmt.Errorf("aggregating asset %s: %w", id, err)
		}
		name := names[id]
		if name == "" {
			name = id
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\t%s\n",
			name, summary.Level, summary.Score, summary.Count, summary.Policy)
	}
	return w.Flush()
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List stored risk values",
		Example: `  autogt risks list --analysis 2f9c... --level very_high`,
		RunE:    runList,
	}

	cmd.Flags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	cmd.Flags().StringVar(&assetID, "asset", "", "Filter by asset ID")
	cmd.Flags().StringVar(&levelName, "level", "", "Filter by risk level")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	filter := database.RiskFilter{}
	if assetID != "" {
		filter.AssetID = &assetID
	}
	if levelName != "" {
		level := models.RiskLevel(levelName)
		if !models.IsValidRiskLevel(level) {
			return fmt.Errorf("unknown risk level %q", levelName)
		}
		filter.Level = &level
	}

	values, err := db.ListRiskValues(ctx, analysisID, filter)
	if err != nil {
		return fmt.Errorf("listing risk values: %w", err)
	}
	if len(values) == 0 {
		fmt.Println("No risk values found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLEVEL\tSCORE\tIMPACT\tLIKELIHOOD\tMETHOD")
	for _, value := range values {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%s\t%s\n",
			value.ID, value.RiskLevel, value.RiskScore,
			value.ImpactLevel, value.LikelihoodLevel, value.Method)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	if assetID != "" || levelName != "" {
		fmt.Printf("\n%d risk values\n", len(values))
		return nil
	}

	counts, err := db.GetRiskCounts(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("counting risks: %w", err)
	}
	fmt.Printf("\n%d risk values (very high: %d, high: %d, medium: %d, low: %d)\n",
		counts.Total, counts.VeryHigh, counts.High, counts.Medium, counts.Low)
	return nil
}

func newBrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "browse",
		Short:   "Browse the risk register interactively",
		Example: `  autogt risks browse --analysis 2f9c...`,
		RunE:    runBrowse,
	}

	cmd.Flags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	_ = cmd.MarkFlagRequired("analysis")

	return cmd
}

func runBrowse(cmd *cobra.Command, args []string) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.GetAnalysis(context.Background(), analysisID); err != nil {
		return err
	}
	return ui.RunBrowser(db, analysisID)
}

func newMatrixCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Render the active risk matrix",
		Long: `Render the risk matrix the engine derives levels from. Without flags the
matrix comes from the configuration; passing all three threshold flags
renders a custom matrix instead.`,
		Example: `  autogt risks matrix
  autogt risks matrix --low-max 0.25 --medium-max 0.55 --high-max 0.85`,
		RunE: runMatrix,
	}

	cmd.Flags().Float64Var(&lowMax, "low-max", 0, "Upper bound of the low band")
	cmd.Flags().Float64Var(&mediumMax, "medium-max", 0, "Upper bound of the medium band")
	cmd.Flags().Float64Var(&highMax, "high-max", 0, "Upper bound of the high band")

	return cmd
}

func runMatrix(cmd *cobra.Command, args []string) error {
	matrix, err := resolveMatrix(cmd)
	if err != nil {
		return err
	}
	fmt.Println(ui.RenderMatrix(matrix))
	return nil
}

func resolveMatrix(cmd *cobra.Command) (*risk.Matrix, error) {
	if cmd.Flags().Changed("low-max") || cmd.Flags().Changed("medium-max") || cmd.Flags().Changed("high-max") {
		return risk.WithCustomThresholds(risk.Thresholds{
			LowMax:    lowMax,
			MediumMax: mediumMax,
			HighMax:   highMax,
		})
	}

	cfg, err := config.Resolve(configFile)
	if err != nil {
		return nil, err
	}
	matrix, err := cfg.Risk.Matrix()
	if err != nil {
		return nil, fmt.Errorf("building risk matrix: %w", err)
	}
	return matrix, nil
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
