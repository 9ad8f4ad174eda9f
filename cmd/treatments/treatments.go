// Package treatments implements risk treatment commands: planner drafts,
// analyst decisions, and listing.
package treatments

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
	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/treatment"
	"github.com/autogt/autogt/pkg/logger"
)

var (
	configFile      string
	analysisID      string
	treatmentID     string
	catalogPath     string
	decision        string
	rationale       string
	countermeasures []string
	estimatedCost   float64
	owner           string
	residual        string
	approve         bool
	reject          bool
	decisionFilter  string
	approvalFilter  string
)

// NewTreatmentsCommand creates the treatments command tree.
func NewTreatmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treatments",
		Short: "Plan and decide risk treatments",
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&analysisID, "analysis", "", "Analysis ID (required)")
	_ = cmd.MarkPersistentFlagRequired("analysis")

	cmd.AddCommand(newPlanCommand(), newDecideCommand(), newListCommand())
	return cmd
}

// Run executes the treatments command with the provided arguments.
func Run(args []string) error {
	cmd := NewTreatmentsCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Draft pending treatments from the assessed risks",
		Long: `Draft one pending treatment per dominant risk through the planner. Each
draft carries a recommended decision, countermeasures from the knowledge
base, a cost estimate, and a projected residual risk, all awaiting analyst
review.`,
		Example: `  autogt treatments plan --analysis 2f9c...
  autogt treatments plan --analysis 2f9c... --catalog ./countermeasures.yaml`,
		RunE: runPlan,
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Countermeasure catalog file (default: built-in)")

	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	analysis, err := db.GetAnalysis(ctx, analysisID)
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

	kb := treatment.DefaultKnowledgeBase()
	if catalogPath != "" {
		kb, err = treatment.Load(catalogPath)
		if err != nil {
			return fmt.Errorf("loading countermeasure catalog: %w", err)
		}
	}

	assets, err := db.ListAssets(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("listing assets: %w", err)
	}
	threats, err := db.ListThreats(ctx, analysisID, database.ThreatFilter{})
	if err != nil {
		return fmt.Errorf("listing threats: %w", err)
	}
	risks, err := db.ListRiskValues(ctx, analysisID, database.RiskFilter{})
	if err != nil {
		return fmt.Errorf("listing risk values: %w", err)
	}
	if len(risks) == 0 {
		return fmt.Errorf("analysis %s has no risk values; run 'autogt risks calculate' first", analysisID)
	}

	planner := treatment.NewPlanner(kb, matrix, policy, logger.GetGlobalLogger())
	drafts, err := planner.Plan(treatment.PlanInput{
		Analysis: analysis,
		Assets:   assets,
		Threats:  threats,
		Risks:    risks,
	})
	if err != nil {
		return fmt.Errorf("planning treatments: %w", err)
	}

	for _, draft := range drafts {
		if err := db.SaveTreatment(ctx, draft); err != nil {
			return fmt.Errorf("saving treatment %s: %w", draft.ID, err)
		}
	}

	fmt.Printf("Drafted %d treatments, all pending approval.\n", len(drafts))
	fmt.Println("Review with 'autogt treatments list', then decide with 'autogt treatments decide'.")
	return nil
}

func newDecideCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Record the analyst decision on a treatment",
		Long: `Record the analyst decision on a drafted treatment. Only the flags you
pass change the record; the decision is validated against the treatment
rules and the strategies advised for the original risk level before it is
saved. --approve or --reject additionally settles the approval status.`,
		Example: `  autogt treatments decide --analysis 2f9c... --treatment a41b... \
    --decision reduce --rationale "Gateway firewall update" \
    --countermeasure "Message authentication" --cost 25000 --approve`,
		RunE: runDecide,
	}

	cmd.Flags().StringVar(&treatmentID, "treatment", "", "Treatment ID (required)")
	cmd.Flags().StringVar(&decision, "decision", "", "Decision: accept, reduce, transfer, avoid")
	cmd.Flags().StringVar(&rationale, "rationale", "", "Rationale for the decision")
	cmd.Flags().StringArrayVar(&countermeasures, "countermeasure", nil, "Countermeasure (repeatable, replaces the draft list)")
	cmd.Flags().Float64Var(&estimatedCost, "cost", 0, "Estimated implementation cost")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner responsible for implementation")
	cmd.Flags().StringVar(&residual, "residual", "", "Residual risk level after treatment")
	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the treatment")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the treatment")
	_ = cmd.MarkFlagRequired("treatment")

	return cmd
}

func runDecide(cmd *cobra.Command, args []string) error {
	if approve && reject {
		return fmt.Errorf("--approve and --reject are mutually exclusive")
	}

	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	treatments, err := db.ListTreatments(ctx, analysisID, database.TreatmentFilter{})
	if err != nil {
		return fmt.Errorf("listing treatments: %w", err)
	}
	var target *models.Treatment
	for _, candidate := range treatments {
		if candidate.ID == treatmentID {
			target = candidate
			break
		}
	}
	if target == nil {
		return fmt.Errorf("treatment %s not found in analysis %s", treatmentID, analysisID)
	}

	if cmd.Flags().Changed("decision") {
		parsed := models.TreatmentDecision(strings.ToLower(decision))
		if !models.IsValidTreatmentDecision(parsed) {
			return fmt.Errorf("unknown treatment decision %q", decision)
		}
		target.Decision = parsed
	}
	if cmd.Flags().Changed("rationale") {
		target.Rationale = rationale
	}
	if cmd.Flags().Changed("countermeasure") {
		target.Countermeasures = countermeasures
	}
	if cmd.Flags().Changed("cost") {
		target.EstimatedCost = estimatedCost
	}
	if cmd.Flags().Changed("owner") {
		target.Owner = owner
	}
	if cmd.Flags().Changed("residual") {
		level := models.RiskLevel(strings.ToLower(residual))
		if !models.IsValidRiskLevel(level) {
			return fmt.Errorf("unknown risk level %q", residual)
		}
		target.ResidualRisk = level
	}

	if err := treatment.ValidateDecision(target); err != nil {
		return err
	}
	if err := db.SaveTreatment(ctx, target); err != nil {
		return fmt.Errorf("saving treatment: %w", err)
	}

	status := target.Approval
	if approve || reject {
		status = models.ApprovalApproved
		if reject {
			status = models.ApprovalRejected
		}
		if err := db.UpdateTreatmentApproval(ctx, target.ID, status); err != nil {
			return fmt.Errorf("updating approval: %w", err)
		}
	}

	fmt.Printf("Treatment %s: %s (residual %s, approval %s)\n",
		target.ID, target.Decision, target.ResidualRisk, status)
	return nil
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List the treatments of an analysis",
		Example: `  autogt treatments list --analysis 2f9c... --approval pending`,
		RunE:    runList,
	}

	cmd.Flags().StringVar(&decisionFilter, "decision", "", "Filter by decision")
	cmd.Flags().StringVar(&approvalFilter, "approval", "", "Filter by approval status")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	_, db, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	filter := database.TreatmentFilter{}
	if decisionFilter != "" {
		parsed := models.TreatmentDecision(decisionFilter)
		if !models.IsValidTreatmentDecision(parsed) {
			return fmt.Errorf("unknown treatment decision %q", decisionFilter)
		}
		filter.Decision = &parsed
	}
	if approvalFilter != "" {
		parsed := models.ApprovalStatus(approvalFilter)
		if !models.IsValidApprovalStatus(parsed) {
			return fmt.Errorf("unknown approval status %q", approvalFilter)
		}
		filter.Approval = &parsed
	}

	treatments, err := db.ListTreatments(context.Background(), analysisID, filter)
	if err != nil {
		return fmt.Errorf("listing treatments: %w", err)
	}
	if len(treatments) == 0 {
		fmt.Println("No treatments found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDECISION\tORIGINAL\tRESIDUAL\tAPPROVAL\tOWNER")
	for _, record := range treatments {
		ownerCol := record.Owner
		if ownerCol == "" {
			ownerCol = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			record.ID, record.Decision, record.OriginalRisk,
			record.ResidualRisk, record.Approval, ownerCol)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	fmt.Printf("\n%d treatments\n", len(treatments))
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
