// Package threats implements threat scenario commands: enrichment-driven
// generation and listing.
package threats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/enrichment"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/storage"
	"github.com/autogt/autogt/pkg/logger"
)

var (
	configFile     string
	analysisID     string
	assetID        string
	category       string
	maxSuggestions int
)

// NewThreatsCommand creates the threats command tree.
func NewThreatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threats",
		Short: "Generate and inspect threat scenarios",
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	_ = cmd.MarkPersistentFlagRequired("analysis")

	cmd.AddCommand(newGenerateCommand(), newListCommand())
	return cmd
}

// Run executes the threats command with the provided arguments.
func Run(args []string) error {
	cmd := NewThreatsCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate candidate threat scenarios for the analysis assets",
		Long: `Generate candidate threat scenarios through the enrichment layer. The
configured strategy selects which assets are covered; the configured driver
(heuristic by default, an external assistant when set) proposes scenarios,
which are persisted with their source recorded.`,
		Example: `  autogt threats generate --analysis 2f9c...
  autogt threats generate --analysis 2f9c... --max 5`,
		RunE: runGenerate,
	}

	cmd.Flags().IntVar(&maxSuggestions, "max", 0, "Maximum suggestions per asset (0 = driver default)")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	log := logger.GetGlobalLogger()

	analysis, err := db.GetAnalysis(ctx, analysisID)
	if err != nil {
		return err
	}

	assets, err := db.ListAssets(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("analysis %s has no assets", analysisID)
	}

	ratings, err := db.ListImpactRatings(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing impact ratings: %w", err)
	}
	ratingByAsset := make(map[string]*models.ImpactRating, len(ratings))
	for _, rating := range ratings {
		ratingByAsset[rating.AssetID] = rating
	}

	items := make([]enrichment.Item, len(assets))
	for i, asset := range assets {
		items[i] = enrichment.Item{Asset: asset, Impact: ratingByAsset[asset.ID]}
	}

	enricher, err := enrichment.FromConfig(cfg, storage.New(cfg.Storage.Dir), log)
	if err != nil {
		return fmt.Errorf("configuring enrichment: %w", err)
	}

	result, err := enricher.SuggestThreats(ctx, analysis, items, enrichment.Options{
		Vehicle:        analysis.Vehicle,
		MaxSuggestions: maxSuggestions,
	})
	if err != nil {
		return fmt.Errorf("generating threat scenarios: %w", err)
	}

	source := models.SourceAssistant
	if enricher.Driver().Name() == "heuristic" {
		source = models.SourceHeuristic
	}

	var threats []*models.ThreatScenario
	var failed int
	for _, enriched := range result.Enrichments {
		if enriched.Err != "" {
			failed++
			log.Warn("Asset enrichment failed", "asset", enriched.AssetName, "error", enriched.Err)
			continue
		}
		for _, suggestion := range enriched.Suggestions {
			threat := models.NewThreatScenario(analysisID, enriched.AssetID, suggestion.Name, suggestion.Category)
			threat.Vector = suggestion.Vector
			threat.Property = suggestion.Property
			threat.DamageScenario = suggestion.DamageScenario
			threat.Description = suggestion.Rationale
			threat.Source = source
			threats = append(threats, threat)
		}
	}

	if len(threats) == 0 {
		return fmt.Errorf("no threat scenarios generated for analysis %s", analysisID)
	}
	if err := db.BatchInsertThreats(ctx, threats); err != nil {
		return fmt.Errorf("saving threat scenarios: %w", err)
	}

	fmt.Printf("Generated %d threat scenarios across %d assets (source: %s)\n",
		len(threats), result.Metadata.SelectedAssets, source)
	if result.Metadata.CacheHits > 0 {
		fmt.Printf("  %d assets answered from cache\n", result.Metadata.CacheHits)
	}
	if failed > 0 {
		fmt.Printf("  %d assets failed enrichment\n", failed)
	}
	return nil
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List the threat scenarios of an analysis",
		Example: `  autogt threats list --analysis 2f9c... --category tampering`,
		RunE:    runList,
	}

	cmd.Flags().StringVar(&assetID, "asset", "", "Filter by asset ID")
	cmd.Flags().StringVar(&category, "category", "", "Filter by STRIDE category")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	filter := database.ThreatFilter{}
	if assetID != "" {
		filter.AssetID = &assetID
	}
	if category != "" {
		threatCategory := models.ThreatCategory(category)
		if !models.IsValidThreatCategory(threatCategory) {
			return fmt.Errorf("unknown threat category %q", category)
		}
		filter.Category = &threatCategory
	}

	threats, err := db.ListThreats(context.Background(), analysisID, filter)
	if err != nil {
		return fmt.Errorf("listing threat scenarios: %w", err)
	}
	if len(threats) == 0 {
		fmt.Println("No threat scenarios found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tVECTOR\tSOURCE")
	for _, threat := range threats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			threat.ID, threat.Name, threat.Category, threat.Vector, threat.Source)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	fmt.Printf("\n%d threat scenarios\n", len(threats))
	return nil
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
