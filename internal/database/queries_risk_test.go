package database

import (
	"context"
	"errors"
	"testing"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

func seedRiskValue(t *testing.T, db *DB, analysisID, assetID, threatID string, impact models.ImpactLevel, likelihood models.LikelihoodLevel) *risk.Value {
	t.Helper()
	matrix := risk.ISO21434Standard()
	score, err := matrix.Score(impact, likelihood)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	level, err := matrix.Level(impact, likelihood)
	if err != nil {
		t.Fatalf("Level() error = %v", err)
	}

	value := &risk.Value{
		ID:              risk.GenerateRiskID(analysisID, threatID, matrix.Method()),
		AnalysisID:      analysisID,
		AssetID:         assetID,
		ThreatID:        threatID,
		ImpactLevel:     impact,
		LikelihoodLevel: likelihood,
		RiskLevel:       level,
		RiskScore:       score,
		Method:          matrix.Method(),
	}
	if err := db.SaveRiskValue(context.Background(), value); err != nil {
		t.Fatalf("SaveRiskValue() error = %v", err)
	}
	return value
}

func TestSaveAndGetImpactRating(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Brake ECU")

	rating, err := models.NewImpactRating(analysis.ID, asset.ID, map[models.ImpactCategory]models.ImpactLevel{
		models.CategorySafety:      models.ImpactSevere,
		models.CategoryOperational: models.ImpactModerate,
	})
	if err != nil {
		t.Fatalf("NewImpactRating() error = %v", err)
	}
	if err := db.SaveImpactRating(ctx, rating); err != nil {
		t.Fatalf("SaveImpactRating() error = %v", err)
	}

	got, err := db.GetImpactRating(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetImpactRating() error = %v", err)
	}
	if got.Level != models.ImpactSevere {
		t.Errorf("Expected level severe, got %s", got.Level)
	}
	if got.Score != rating.Score {
		t.Errorf("Expected score %v, got %v", rating.Score, got.Score)
	}
	if len(got.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %d", len(got.Categories))
	}
	if got.Categories[models.CategorySafety] != models.ImpactSevere {
		t.Errorf("Categories did not round-trip: %v", got.Categories)
	}

	// Re-rating the same asset replaces the record.
	rerated, err := models.NewImpactRating(analysis.ID, asset.ID, map[models.ImpactCategory]models.ImpactLevel{
		models.CategoryOperational: models.ImpactModerate,
	})
	if err != nil {
		t.Fatalf("NewImpactRating() error = %v", err)
	}
	if err := db.SaveImpactRating(ctx, rerated); err != nil {
		t.Fatalf("SaveImpactRating() upsert error = %v", err)
	}

	got, err = db.GetImpactRating(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetImpactRating() error = %v", err)
	}
	if got.Level != models.ImpactModerate {
		t.Errorf("Expected replaced level moderate, got %s", got.Level)
	}

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM impact_ratings WHERE asset_id = ?", asset.ID).Scan(&count)
	if err != nil || count != 1 {
		t.Errorf("Expected 1 rating after upsert, got %d (err=%v)", count, err)
	}

	if _, err := db.GetImpactRating(ctx, "unrated-asset"); !errors.Is(err, ErrNoRating) {
		t.Errorf("Expected ErrNoRating, got %v", err)
	}
}

func TestListImpactRatings(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	minor := seedAsset(t, db, analysis.ID, "Cabin lighting")
	major := seedAsset(t, db, analysis.ID, "Steering ECU")

	low, err := models.NewImpactRating(analysis.ID, minor.ID, map[models.ImpactCategory]models.ImpactLevel{
		models.CategoryOperational: models.ImpactNegligible,
	})
	if err != nil {
		t.Fatal(err)
	}
	high, err := models.NewImpactRating(analysis.ID, major.ID, map[models.ImpactCategory]models.ImpactLevel{
		models.CategorySafety: models.ImpactSevere,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range []*models.ImpactRating{low, high} {
		if err := db.SaveImpactRating(ctx, r); err != nil {
			t.Fatalf("SaveImpactRating() error = %v", err)
		}
	}

	ratings, err := db.ListImpactRatings(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("ListImpactRatings() error = %v", err)
	}
	if len(ratings) != 2 {
		t.Fatalf("Expected 2 ratings, got %d", len(ratings))
	}
	if ratings[0].AssetID != major.ID {
		t.Errorf("Expected worst rating first, got asset %s", ratings[0].AssetID)
	}
}

func TestSaveAndListAttackPaths(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Telematics ECU")
	threat := seedThreat(t, db, analysis.ID, asset.ID, "Remote code execution")
	other := seedThreat(t, db, analysis.ID, asset.ID, "Debug port abuse")

	remote := models.NewAttackPath(analysis.ID, threat.ID, "cellular modem", models.VectorNetwork,
		[]string{"compromise baseband", "pivot to application CPU", "escalate to root"})
	remote.Prerequisites = []string{"exposed modem firmware version"}
	local := models.NewAttackPath(analysis.ID, threat.ID, "bluetooth stack", models.VectorAdjacentNetwork,
		[]string{"pair with spoofed device", "exploit parser"})
	physical := models.NewAttackPath(analysis.ID, other.ID, "debug header", models.VectorPhysical,
		[]string{"open enclosure", "attach JTAG probe"})

	for _, p := range []*models.AttackPath{remote, local, physical} {
		if err := db.SaveAttackPath(ctx, p); err != nil {
			t.Fatalf("SaveAttackPath() error = %v", err)
		}
	}

	all, err := db.ListAttackPaths(ctx, analysis.ID, nil)
	if err != nil {
		t.Fatalf("ListAttackPaths() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 paths, got %d", len(all))
	}

	byThreat, err := db.ListAttackPaths(ctx, analysis.ID, &threat.ID)
	if err != nil {
		t.Fatalf("ListAttackPaths() error = %v", err)
	}
	if len(byThreat) != 2 {
		t.Fatalf("Expected 2 paths for threat, got %d", len(byThreat))
	}
	for _, p := range byThreat {
		if p.ThreatID != threat.ID {
			t.Errorf("Filter leaked threat %s", p.ThreatID)
		}
	}

	// Ordered by entry point within a threat, JSON columns intact.
	if byThreat[0].EntryPoint != "bluetooth stack" {
		t.Errorf("Expected bluetooth stack first, got %s", byThreat[0].EntryPoint)
	}
	if len(byThreat[1].Steps) != 3 {
		t.Errorf("Expected 3 steps, got %v", byThreat[1].Steps)
	}
	if len(byThreat[1].Prerequisites) != 1 {
		t.Errorf("Expected 1 prerequisite, got %v", byThreat[1].Prerequisites)
	}
}

func TestSaveAndGetFeasibilityRating(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Gateway")
	threat := seedThreat(t, db, analysis.ID, asset.ID, "Message injection")

	rating, err := models.NewFeasibilityRating(analysis.ID, threat.ID,
		models.TimeOneWeek, models.ExpertiseProficient, models.KnowledgePublic,
		models.OpportunityEasy, models.EquipmentStandard)
	if err != nil {
		t.Fatalf("NewFeasibilityRating() error = %v", err)
	}
	if err := db.SaveFeasibilityRating(ctx, rating); err != nil {
		t.Fatalf("SaveFeasibilityRating() error = %v", err)
	}

	got, err := db.GetFeasibilityRating(ctx, threat.ID)
	if err != nil {
		t.Fatalf("GetFeasibilityRating() error = %v", err)
	}
	if got.Level != rating.Level {
		t.Errorf("Expected level %s, got %s", rating.Level, got.Level)
	}
	if got.Score != rating.Score {
		t.Errorf("Expected score %v, got %v", rating.Score, got.Score)
	}
	if got.ElapsedTime != models.TimeOneWeek {
		t.Errorf("Expected elapsed time to round-trip, got %s", got.ElapsedTime)
	}
	if got.Equipment != models.EquipmentStandard {
		t.Errorf("Expected equipment to round-trip, got %s", got.Equipment)
	}

	// Re-rating the same threat replaces the record.
	rerated, err := models.NewFeasibilityRating(analysis.ID, threat.ID,
		models.TimeBeyondSixMonths, models.ExpertiseMultipleExperts, models.KnowledgeStrictlySecret,
		models.OpportunityDifficult, models.EquipmentMultipleBespoke)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveFeasibilityRating(ctx, rerated); err != nil {
		t.Fatalf("SaveFeasibilityRating() upsert error = %v", err)
	}

	got, err = db.GetFeasibilityRating(ctx, threat.ID)
	if err != nil {
		t.Fatalf("GetFeasibilityRating() error = %v", err)
	}
	if got.Level != models.LikelihoodVeryLow {
		t.Errorf("Expected replaced level very_low, got %s", got.Level)
	}

	if _, err := db.GetFeasibilityRating(ctx, "unrated-threat"); !errors.Is(err, ErrNoRating) {
		t.Errorf("Expected ErrNoRating, got %v", err)
	}
}

func TestSaveRiskValueUpsert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Telematics ECU")
	threat := seedThreat(t, db, analysis.ID, asset.ID, "Remote exploit")

	first := seedRiskValue(t, db, analysis.ID, asset.ID, threat.ID, models.ImpactModerate, models.LikelihoodLow)

	// Recalculating with changed ratings produces the same ID and replaces
	// the stored value.
	second := seedRiskValue(t, db, analysis.ID, asset.ID, threat.ID, models.ImpactSevere, models.LikelihoodHigh)
	if second.ID != first.ID {
		t.Fatalf("Expected stable risk ID, got %s and %s", first.ID, second.ID)
	}

	values, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("Expected 1 value after upsert, got %d", len(values))
	}
	if values[0].RiskLevel != models.RiskVeryHigh {
		t.Errorf("Expected replaced level very_high, got %s", values[0].RiskLevel)
	}
	if values[0].RiskScore != 0.85 {
		t.Errorf("Expected replaced score 0.85, got %v", values[0].RiskScore)
	}
}

func TestListRiskValues(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Telematics ECU")
	other := seedAsset(t, db, analysis.ID, "Infotainment ECU")

	t1 := seedThreat(t, db, analysis.ID, asset.ID, "Remote exploit")
	t2 := seedThreat(t, db, analysis.ID, asset.ID, "Firmware tampering")
	t3 := seedThreat(t, db, analysis.ID, other.ID, "Media parser abuse")

	seedRiskValue(t, db, analysis.ID, asset.ID, t1.ID, models.ImpactSevere, models.LikelihoodHigh)       // 0.85 very_high
	seedRiskValue(t, db, analysis.ID, asset.ID, t2.ID, models.ImpactMajor, models.LikelihoodMedium)      // 0.65 high
	seedRiskValue(t, db, analysis.ID, other.ID, t3.ID, models.ImpactNegligible, models.LikelihoodMedium) // 0.35 medium

	values, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(values))
	}

	// Most severe first.
	wantOrder := []models.RiskLevel{models.RiskVeryHigh, models.RiskHigh, models.RiskMedium}
	for i, want := range wantOrder {
		if values[i].RiskLevel != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, values[i].RiskLevel)
		}
	}

	level := models.RiskHigh
	byLevel, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{Level: &level})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(byLevel) != 1 || byLevel[0].ThreatID != t2.ID {
		t.Errorf("Expected only the high risk, got %d values", len(byLevel))
	}

	minScore := 0.6
	byScore, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{MinScore: &minScore})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(byScore) != 2 {
		t.Errorf("Expected 2 values with score >= 0.6, got %d", len(byScore))
	}

	byAsset, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{AssetID: &other.ID})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(byAsset) != 1 || byAsset[0].ThreatID != t3.ID {
		t.Errorf("Expected only the infotainment risk, got %d values", len(byAsset))
	}

	limited, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{Limit: 2})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 values with limit, got %d", len(limited))
	}
}

func TestGetRiskCounts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Gateway")

	combos := []struct {
		threat     string
		impact     models.ImpactLevel
		likelihood models.LikelihoodLevel
	}{
		{"Spoofed routing", models.ImpactSevere, models.LikelihoodVeryHigh}, // very_high
		{"Filter bypass", models.ImpactSevere, models.LikelihoodHigh},      // very_high
		{"Log tampering", models.ImpactMajor, models.LikelihoodMedium},     // high
		{"Replay attack", models.ImpactModerate, models.LikelihoodLow},     // medium
		{"Port scan", models.ImpactNegligible, models.LikelihoodVeryLow},   // low
	}
	for _, c := range combos {
		threat := seedThreat(t, db, analysis.ID, asset.ID, c.threat)
		seedRiskValue(t, db, analysis.ID, asset.ID, threat.ID, c.impact, c.likelihood)
	}

	counts, err := db.GetRiskCounts(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("GetRiskCounts() error = %v", err)
	}

	if counts.VeryHigh != 2 {
		t.Errorf("Expected 2 very_high, got %d", counts.VeryHigh)
	}
	if counts.High != 1 {
		t.Errorf("Expected 1 high, got %d", counts.High)
	}
	if counts.Medium != 1 {
		t.Errorf("Expected 1 medium, got %d", counts.Medium)
	}
	if counts.Low != 1 {
		t.Errorf("Expected 1 low, got %d", counts.Low)
	}
	if counts.Total != 5 {
		t.Errorf("Expected total 5, got %d", counts.Total)
	}
}

func TestGetAssetRiskStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	brakes := seedAsset(t, db, analysis.ID, "Brake controller")
	radio := seedAsset(t, db, analysis.ID, "Radio tuner")

	bt := seedThreat(t, db, analysis.ID, brakes.ID, "Actuation override")
	rt := seedThreat(t, db, analysis.ID, radio.ID, "RDS parser abuse")

	seedRiskValue(t, db, analysis.ID, brakes.ID, bt.ID, models.ImpactSevere, models.LikelihoodHigh)
	seedRiskValue(t, db, analysis.ID, radio.ID, rt.ID, models.ImpactNegligible, models.LikelihoodLow)

	stats, err := db.GetAssetRiskStats(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("GetAssetRiskStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected stats for 2 assets, got %d", len(stats))
	}

	if stats[brakes.ID] == nil || stats[brakes.ID].VeryHigh != 1 {
		t.Errorf("Expected 1 very_high for brakes, got %+v", stats[brakes.ID])
	}
	if stats[radio.ID] == nil || stats[radio.ID].Low != 1 {
		t.Errorf("Expected 1 low for radio, got %+v", stats[radio.ID])
	}
}

func TestSaveAndListTreatments(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Telematics ECU")

	t1 := seedThreat(t, db, analysis.ID, asset.ID, "Remote exploit")
	t2 := seedThreat(t, db, analysis.ID, asset.ID, "Debug port abuse")
	r1 := seedRiskValue(t, db, analysis.ID, asset.ID, t1.ID, models.ImpactSevere, models.LikelihoodHigh)
	r2 := seedRiskValue(t, db, analysis.ID, asset.ID, t2.ID, models.ImpactNegligible, models.LikelihoodVeryLow)

	reduce := models.NewTreatment(analysis.ID, r1.ID, models.DecisionReduce, r1.RiskLevel)
	reduce.Rationale = "unacceptable exposure on the cellular interface"
	reduce.Countermeasures = []string{"signed firmware updates", "modem firewall"}
	reduce.EstimatedCost = 120000
	reduce.ResidualRisk = models.RiskMedium
	reduce.Owner = "platform security"

	accept := models.NewTreatment(analysis.ID, r2.ID, models.DecisionAccept, r2.RiskLevel)
	accept.Rationale = "risk below acceptance threshold"

	for _, tr := range []*models.Treatment{reduce, accept} {
		if err := db.SaveTreatment(ctx, tr); err != nil {
			t.Fatalf("SaveTreatment() error = %v", err)
		}
	}

	all, err := db.ListTreatments(ctx, analysis.ID, TreatmentFilter{})
	if err != nil {
		t.Fatalf("ListTreatments() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 treatments, got %d", len(all))
	}

	// Worst original risk first.
	if all[0].ID != reduce.ID {
		t.Errorf("Expected the reduce treatment first, got %s", all[0].ID)
	}
	if len(all[0].Countermeasures) != 2 {
		t.Errorf("Expected countermeasures to round-trip, got %v", all[0].Countermeasures)
	}
	if all[0].ResidualRisk != models.RiskMedium {
		t.Errorf("Expected residual medium, got %s", all[0].ResidualRisk)
	}

	decision := models.DecisionAccept
	accepted, err := db.ListTreatments(ctx, analysis.ID, TreatmentFilter{Decision: &decision})
	if err != nil {
		t.Fatalf("ListTreatments() error = %v", err)
	}
	if len(accepted) != 1 || accepted[0].ID != accept.ID {
		t.Errorf("Expected only the accept treatment, got %d", len(accepted))
	}

	pending := models.ApprovalPending
	byApproval, err := db.ListTreatments(ctx, analysis.ID, TreatmentFilter{Approval: &pending})
	if err != nil {
		t.Fatalf("ListTreatments() error = %v", err)
	}
	if len(byApproval) != 2 {
		t.Errorf("Expected 2 pending treatments, got %d", len(byApproval))
	}
}

func TestUpdateTreatmentApproval(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Gateway")
	threat := seedThreat(t, db, analysis.ID, asset.ID, "Message injection")
	value := seedRiskValue(t, db, analysis.ID, asset.ID, threat.ID, models.ImpactMajor, models.LikelihoodHigh)

	treatment := models.NewTreatment(analysis.ID, value.ID, models.DecisionReduce, value.RiskLevel)
	treatment.Rationale = "gateway filters are mandatory"
	treatment.Countermeasures = []string{"message authentication"}
	treatment.EstimatedCost = 45000
	if err := db.SaveTreatment(ctx, treatment); err != nil {
		t.Fatalf("SaveTreatment() error = %v", err)
	}

	if err := db.UpdateTreatmentApproval(ctx, treatment.ID, models.ApprovalApproved); err != nil {
		t.Fatalf("UpdateTreatmentApproval() error = %v", err)
	}

	updated, err := db.ListTreatments(ctx, analysis.ID, TreatmentFilter{})
	if err != nil {
		t.Fatalf("ListTreatments() error = %v", err)
	}
	if len(updated) != 1 || updated[0].Approval != models.ApprovalApproved {
		t.Errorf("Expected approved treatment, got %+v", updated)
	}

	if err := db.UpdateTreatmentApproval(ctx, "missing", models.ApprovalRejected); err == nil {
		t.Error("Expected error for missing treatment")
	}
}

func TestSaveAndListGoals(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)
	asset := seedAsset(t, db, analysis.ID, "Telematics ECU")
	threat := seedThreat(t, db, analysis.ID, asset.ID, "Remote exploit")
	value := seedRiskValue(t, db, analysis.ID, asset.ID, threat.ID, models.ImpactSevere, models.LikelihoodHigh)

	treatment := models.NewTreatment(analysis.ID, value.ID, models.DecisionReduce, value.RiskLevel)
	treatment.Rationale = "reduce remote attack surface"
	treatment.Countermeasures = []string{"secure boot"}
	treatment.EstimatedCost = 80000
	if err := db.SaveTreatment(ctx, treatment); err != nil {
		t.Fatalf("SaveTreatment() error = %v", err)
	}

	second := models.NewCybersecurityGoal(analysis.ID, asset.ID, treatment.ID,
		"Verify update authenticity", models.PropertyAuthenticity)
	second.Description = "all software updates are cryptographically verified before installation"
	second.Verification = "penetration test of the update chain"
	first := models.NewCybersecurityGoal(analysis.ID, asset.ID, treatment.ID,
		"Enforce secure boot", models.PropertyIntegrity)

	for _, g := range []*models.CybersecurityGoal{second, first} {
		if err := db.SaveGoal(ctx, g); err != nil {
			t.Fatalf("SaveGoal() error = %v", err)
		}
	}

	goals, err := db.ListGoals(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("ListGoals() error = %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("Expected 2 goals, got %d", len(goals))
	}

	// Alphabetical by title.
	if goals[0].Title != "Enforce secure boot" {
		t.Errorf("Expected Enforce secure boot first, got %s", goals[0].Title)
	}
	if goals[1].Property != models.PropertyAuthenticity {
		t.Errorf("Expected authenticity property, got %s", goals[1].Property)
	}
	if goals[1].Verification == "" {
		t.Error("Expected verification to round-trip")
	}
}

func TestRiskValueForeignKeys(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)

	orphan := &risk.Value{
		ID:              "orphan",
		AnalysisID:      analysis.ID,
		AssetID:         "no-such-asset",
		ThreatID:        "no-such-threat",
		ImpactLevel:     models.ImpactMajor,
		LikelihoodLevel: models.LikelihoodHigh,
		RiskLevel:       models.RiskHigh,
		RiskScore:       0.70,
		Method:          risk.MethodISO21434,
	}
	if err := db.SaveRiskValue(ctx, orphan); err == nil {
		t.Error("Expected foreign key violation for orphan risk value")
	}
}

func TestListRiskValuesEmpty(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	analysis := seedAnalysis(t, db)

	values, err := db.ListRiskValues(ctx, analysis.ID, RiskFilter{})
	if err != nil {
		t.Fatalf("ListRiskValues() error = %v", err)
	}
	if len(values) != 0 {
		t.Errorf("Expected no values, got %d", len(values))
	}

	counts, err := db.GetRiskCounts(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("GetRiskCounts() error = %v", err)
	}
	if counts.Total != 0 {
		t.Errorf("Expected zero total, got %d", counts.Total)
	}
}
