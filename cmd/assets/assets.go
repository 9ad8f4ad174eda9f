// Package assets implements the asset definition commands. Assets are the
// input to every TARA analysis; they can be added one at a time or imported
// from YAML, JSON, or CSV definition files.
package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/autogt/autogt/internal/config"
	"github.com/autogt/autogt/internal/database"
	"github.com/autogt/autogt/internal/importer"
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/pkg/logger"
)

var (
	configFile  string
	analysisID  string
	assetName   string
	assetType   string
	criticality string
	description string
	interfaces  string
	properties  string
	importPath  string
)

// NewAssetsCommand creates the assets command tree.
func NewAssetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Define the assets of an analysis",
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	_ = cmd.MarkPersistentFlagRequired("analysis")

	cmd.AddCommand(newAddCommand(), newListCommand(), newImportCommand())
	return cmd
}

// Run executes the assets command with the provided arguments.
func Run(args []string) error {
	cmd := NewAssetsCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a single asset",
		Example: `  autogt assets add --analysis 2f9c... --name "Telematics Unit" --type hardware \
    --criticality high --interfaces Cellular,CAN --properties integrity,availability`,
		RunE: runAdd,
	}

	cmd.Flags().StringVar(&assetName, "name", "", "Asset name (required)")
	cmd.Flags().StringVar(&assetType, "type", "", "Asset type: hardware, software, communication, data, human, physical (required)")
	cmd.Flags().StringVar(&criticality, "criticality", "", "Criticality: low, medium, high, critical")
	cmd.Flags().StringVar(&description, "description", "", "Asset description")
	cmd.Flags().StringVar(&interfaces, "interfaces", "", "Comma-separated interface list")
	cmd.Flags().StringVar(&properties, "properties", "", "Comma-separated security properties")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	if _, err := db.GetAnalysis(ctx, analysisID); err != nil {
		return err
	}

	kind := models.AssetType(strings.ToLower(assetType))
	if !models.IsValidAssetType(kind) {
		return fmt.Errorf("unknown asset type %q", assetType)
	}

	asset := models.NewAsset(analysisID, assetName, kind)
	asset.Description = description
	asset.Interfaces = splitList(interfaces)

	if criticality != "" {
		level := models.CriticalityLevel(strings.ToLower(criticality))
		if !models.IsValidCriticalityLevel(level) {
			return fmt.Errorf("unknown criticality %q", criticality)
		}
		asset.Criticality = level
	}
	for _, raw := range splitList(properties) {
		property := models.SecurityProperty(strings.ToLower(raw))
		if !models.IsValidSecurityProperty(property) {
			return fmt.Errorf("unknown security property %q", raw)
		}
		asset.Properties = append(asset.Properties, property)
	}

	if err := db.BatchInsertAssets(ctx, []*models.Asset{asset}); err != nil {
		return fmt.Errorf("saving asset: %w", err)
	}

	fmt.Printf("Added asset %s (%s)\n", asset.Name, asset.ID)
	return nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List the assets of an analysis",
		Example: `  autogt assets list --analysis 2f9c...`,
		RunE:    runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	assets, err := db.ListAssets(context.Background(), analysisID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	if len(assets) == 0 {
		fmt.Println("No assets defined.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCRITICALITY\tINTERFACES")
	for _, asset := range assets {
		crit := string(asset.Criticality)
		if crit == "" {
			crit = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			asset.ID, asset.Name, asset.Type, crit, strings.Join(asset.Interfaces, ","))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	fmt.Printf("\n%d assets\n", len(assets))
	return nil
}

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import assets from a definition file",
		Long: `Import an asset definition file into an analysis. YAML and JSON files may
carry impact ratings and manual threat scenarios per asset; CSV carries a
flat asset list. A file imports completely or not at all.`,
		Example: `  autogt assets import --analysis 2f9c... --file assets.yaml`,
		RunE:    runImport,
	}

	cmd.Flags().StringVar(&importPath, "file", "", "Definition file (.yaml, .yml, .json, or .csv) (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	if _, err := db.GetAnalysis(ctx, analysisID); err != nil {
		return err
	}

	result, err := importer.New(logger.GetGlobalLogger()).ImportFile(analysisID, importPath)
	if err != nil {
		return err
	}

	if err := db.BatchInsertAssets(ctx, result.Assets); err != nil {
		return fmt.Errorf("saving assets: %w", err)
	}
	for _, impact := range result.Impacts {
		if err := db.SaveImpactRating(ctx, impact); err != nil {
			return fmt.Errorf("saving impact rating for asset %s: %w", impact.AssetID, err)
		}
	}
	if len(result.Threats) > 0 {
		if err := db.BatchInsertThreats(ctx, result.Threats); err != nil {
			return fmt.Errorf("saving threat scenarios: %w", err)
		}
	}

	fmt.Printf("Imported %d assets, %d impact ratings, %d threat scenarios from %s\n",
		len(result.Assets), len(result.Impacts), len(result.Threats), importPath)
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// open resolves configuration and opens the analysis database.
func open() (*database.DB, error) {
	cfg, err := config.Resolve(configFile)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
