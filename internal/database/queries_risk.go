package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autogt/autogt/internal/models"
	"github.com/autogt/autogt/internal/risk"
)

// ErrNoRating is returned when a subject has no stored rating.
var ErrNoRating = errors.New("no rating found")

// SaveImpactRating saves or replaces the impact rating for an asset.
func (db *DB) SaveImpactRating(ctx context.Context, rating *models.ImpactRating) error {
	categories, err := marshalJSON(rating.Categories)
	if err != nil {
		return fmt.Errorf("marshaling categories: %w", err)
	}

	query := `
		INSERT INTO impact_ratings (id, analysis_id, asset_id, categories,
			level, score, rationale, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			categories = excluded.categories,
			level = excluded.level,
			score = excluded.score,
			rationale = excluded.rationale
	`

	_, err = db.ExecContext(ctx, query,
		rating.ID,
		rating.AnalysisID,
		rating.AssetID,
		categories,
		rating.Level,
		rating.Score,
		rating.Rationale,
		orNow(rating.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving impact rating: %w", err)
	}

	return nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

const impactSelect = `
	SELECT id, analysis_id, asset_id, categories, level, score, rationale, created_at
	FROM impact_ratings`

func scanImpactRating(row rowScanner) (*models.ImpactRating, error) {
	rating := &models.ImpactRating{}
	var categories sql.NullString

	err := row.Scan(
		&rating.ID,
		&rating.AnalysisID,
		&rating.AssetID,
		&categories,
		&rating.Level,
		&rating.Score,
		&rating.Rationale,
		&rating.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(categories, &rating.Categories); err != nil {
		return nil, fmt.Errorf("unmarshaling categories: %w", err)
	}

	return rating, nil
}

// GetImpactRating retrieves the impact rating for an asset.
func (db *DB) GetImpactRating(ctx context.Context, assetID string) (*models.ImpactRating, error) {
	rating, err := scanImpactRating(db.QueryRowContext(ctx, impactSelect+" WHERE asset_id = ?", assetID))
	if err == sql.ErrNoRows {
		return nil, ErrNoRating
	}
	if err != nil {
		return nil, fmt.Errorf("querying impact rating: %w", err)
	}
	return rating, nil
}

// ListImpactRatings retrieves all impact ratings for an analysis, worst
// first.
func (db *DB) ListImpactRatings(ctx context.Context, analysisID string) ([]*models.ImpactRating, error) {
	query := impactSelect + ` WHERE analysis_id = ? ORDER BY score DESC, asset_id`

	rows, err := db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("querying impact ratings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ratings []*models.ImpactRating
	for rows.Next() {
		rating, err := scanImpactRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return ratings, nil
}

// SaveAttackPath saves or replaces an attack path.
func (db *DB) SaveAttackPath(ctx context.Context, path *models.AttackPath) error {
	steps, err := marshalJSON(path.Steps)
	if err != nil {
		return fmt.Errorf("marshaling steps: %w", err)
	}
	prerequisites, err := marshalJSON(path.Prerequisites)
	if err != nil {
		return fmt.Errorf("marshaling prerequisites: %w", err)
	}

	query := `
		INSERT INTO attack_paths (id, analysis_id, threat_id, entry_point,
			vector, steps, prerequisites, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entry_point = excluded.entry_point,
			vector = excluded.vector,
			steps = excluded.steps,
			prerequisites = excluded.prerequisites,
			notes = excluded.notes
	`

	_, err = db.ExecContext(ctx, query,
		path.ID,
		path.AnalysisID,
		path.ThreatID,
		path.EntryPoint,
		path.Vector,
		steps,
		prerequisites,
		path.Notes,
		orNow(path.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving attack path: %w", err)
	}

	return nil
}

// ListAttackPaths retrieves attack paths for an analysis, optionally
// restricted to one threat.
func (db *DB) ListAttackPaths(ctx context.Context, analysisID string, threatID *string) ([]*models.AttackPath, error) {
	query := `
		SELECT id, analysis_id, threat_id, entry_point, vector,
		       steps, prerequisites, notes, created_at
		FROM attack_paths
		WHERE analysis_id = ?
	`
	args := []any{analysisID}

	if threatID != nil {
		query += " AND threat_id = ?"
		args = append(args, *threatID)
	}

	query += " ORDER BY threat_id, entry_point"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying attack paths: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var paths []*models.AttackPath
	for rows.Next() {
		path := &models.AttackPath{}
		var steps, prerequisites sql.NullString

		err := rows.Scan(
			&path.ID,
			&path.AnalysisID,
			&path.ThreatID,
			&path.EntryPoint,
			&path.Vector,
			&steps,
			&prerequisites,
			&path.Notes,
			&path.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if err := unmarshalJSON(steps, &path.Steps); err != nil {
			return nil, fmt.Errorf("unmarshaling steps: %w", err)
		}
		if err := unmarshalJSON(prerequisites, &path.Prerequisites); err != nil {
			return nil, fmt.Errorf("unmarshaling prerequisites: %w", err)
		}

		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return paths, nil
}

// SaveFeasibilityRating saves or replaces the feasibility rating for a
// threat.
func (db *DB) SaveFeasibilityRating(ctx context.Context, rating *models.FeasibilityRating) error {
	query := `
		INSERT INTO feasibility_ratings (id, analysis_id, threat_id,
			elapsed_time, expertise, knowledge, opportunity, equipment,
			level, score, rationale, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			elapsed_time = excluded.elapsed_time,
			expertise = excluded.expertise,
			knowledge = excluded.knowledge,
			opportunity = excluded.opportunity,
			equipment = excluded.equipment,
			level = excluded.level,
			score = excluded.score,
			rationale = excluded.rationale
	`

	_, err := db.ExecContext(ctx, query,
		rating.ID,
		rating.AnalysisID,
		rating.ThreatID,
		rating.ElapsedTime,
		rating.Expertise,
		rating.Knowledge,
		rating.Opportunity,
		rating.Equipment,
		rating.Level,
		rating.Score,
		rating.Rationale,
		orNow(rating.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving feasibility rating: %w", err)
	}

	return nil
}

const feasibilitySelect = `
	SELECT id, analysis_id, threat_id, elapsed_time, expertise, knowledge,
	       opportunity, equipment, level, score, rationale, created_at
	FROM feasibility_ratings`

func scanFeasibilityRating(row rowScanner) (*models.FeasibilityRating, error) {
	rating := &models.FeasibilityRating{}
	err := row.Scan(
		&rating.ID,
		&rating.AnalysisID,
		&rating.ThreatID,
		&rating.ElapsedTime,
		&rating.Expertise,
		&rating.Knowledge,
		&rating.Opportunity,
		&rating.Equipment,
		&rating.Level,
		&rating.Score,
		&rating.Rationale,
		&rating.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rating, nil
}

// GetFeasibilityRating retrieves the feasibility rating for a threat.
func (db *DB) GetFeasibilityRating(ctx context.Context, threatID string) (*models.FeasibilityRating, error) {
	rating, err := scanFeasibilityRating(db.QueryRowContext(ctx, feasibilitySelect+" WHERE threat_id = ?", threatID))
	if err == sql.ErrNoRows {
		return nil, ErrNoRating
	}
	if err != nil {
		return nil, fmt.Errorf("querying feasibility rating: %w", err)
	}
	return rating, nil
}

// ListFeasibilityRatings retrieves all feasibility ratings for an analysis.
func (db *DB) ListFeasibilityRatings(ctx context.Context, analysisID string) ([]*models.FeasibilityRating, error) {
	query := feasibilitySelect + ` WHERE analysis_id = ? ORDER BY score DESC, threat_id`

	rows, err := db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("querying feasibility ratings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ratings []*models.FeasibilityRating
	for rows.Next() {
		rating, err := scanFeasibilityRating(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return ratings, nil
}

// SaveRiskValue saves or replaces a calculated risk value. Recalculation
// under the same method produces the same ID, so the record is replaced in
// place.
func (db *DB) SaveRiskValue(ctx context.Context, value *risk.Value) error {
	query := `
		INSERT INTO risk_values (id, analysis_id, asset_id, threat_id,
			impact_level, likelihood_level, risk_level, risk_score,
			calculation_method, justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			impact_level = excluded.impact_level,
			likelihood_level = excluded.likelihood_level,
			risk_level = excluded.risk_level,
			risk_score = excluded.risk_score,
			justification = excluded.justification
	`

	_, err := db.ExecContext(ctx, query,
		value.ID,
		value.AnalysisID,
		value.AssetID,
		value.ThreatID,
		value.ImpactLevel,
		value.LikelihoodLevel,
		value.RiskLevel,
		value.RiskScore,
		value.Method,
		value.Justification,
		orNow(value.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving risk value: %w", err)
	}

	return nil
}

// riskLevelOrder ranks levels most severe first for ORDER BY clauses.
const riskLevelOrder = `
	CASE risk_level
		WHEN 'very_high' THEN 1
		WHEN 'high' THEN 2
		WHEN 'medium' THEN 3
		WHEN 'low' THEN 4
	END`

// ListRiskValues retrieves risk values for an analysis with optional
// filtering, most severe first.
func (db *DB) ListRiskValues(ctx context.Context, analysisID string, filter RiskFilter) ([]*risk.Value, error) {
	query := `
		SELECT id, analysis_id, asset_id, threat_id, impact_level,
		       likelihood_level, risk_level, risk_score, calculation_method,
		       justification, created_at
		FROM risk_values
		WHERE analysis_id = ?
	`
	args := []any{analysisID}

	if filter.AssetID != nil {
		query += " AND asset_id = ?"
		args = append(args, *filter.AssetID)
	}

	if filter.ThreatID != nil {
		query += " AND threat_id = ?"
		args = append(args, *filter.ThreatID)
	}

	if filter.Level != nil {
		query += " AND risk_level = ?"
		args = append(args, *filter.Level)
	}

	if filter.MinScore != nil {
		query += " AND risk_score >= ?"
		args = append(args, *filter.MinScore)
	}

	query += " ORDER BY " + riskLevelOrder + ", risk_score DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying risk values: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var values []*risk.Value
	for rows.Next() {
		value := &risk.Value{}
		err := rows.Scan(
			&value.ID,
			&value.AnalysisID,
			&value.AssetID,
			&value.ThreatID,
			&value.ImpactLevel,
			&value.LikelihoodLevel,
			&value.RiskLevel,
			&value.RiskScore,
			&value.Method,
			&value.Justification,
			&value.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return values, nil
}

// GetRiskCounts returns per-level counts of risk values for an analysis.
func (db *DB) GetRiskCounts(ctx context.Context, analysisID string) (*RiskCounts, error) {
	query := `
		SELECT
			COUNT(CASE WHEN risk_level = 'low' THEN 1 END) as low,
			COUNT(CASE WHEN risk_level = 'medium' THEN 1 END) as medium,
			COUNT(CASE WHEN risk_level = 'high' THEN 1 END) as high,
			COUNT(CASE WHEN risk_level = 'very_high' THEN 1 END) as very_high,
			COUNT(*) as total
		FROM risk_values
		WHERE analysis_id = ?
	`

	counts := &RiskCounts{}
	err := db.QueryRowContext(ctx, query, analysisID).Scan(
		&counts.Low,
		&counts.Medium,
		&counts.High,
		&counts.VeryHigh,
		&counts.Total,
	)
	if err != nil {
		return nil, fmt.Errorf("querying risk counts: %w", err)
	}

	return counts, nil
}

// GetAssetRiskStats returns per-asset risk counts for an analysis.
func (db *DB) GetAssetRiskStats(ctx context.Context, analysisID string) (map[string]*RiskCounts, error) {
	query := `
		SELECT
			asset_id,
			COUNT(CASE WHEN risk_level = 'low' THEN 1 END) as low,
			COUNT(CASE WHEN risk_level = 'medium' THEN 1 END) as medium,
			COUNT(CASE WHEN risk_level = 'high' THEN 1 END) as high,
			COUNT(CASE WHEN risk_level = 'very_high' THEN 1 END) as very_high,
			COUNT(*) as total
		FROM risk_values
		WHERE analysis_id = ?
		GROUP BY asset_id
	`

	rows, err := db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("querying asset risk stats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := make(map[string]*RiskCounts)
	for rows.Next() {
		var assetID string
		counts := &RiskCounts{}

		err := rows.Scan(
			&assetID,
			&counts.Low,
			&counts.Medium,
			&counts.High,
			&counts.VeryHigh,
			&counts.Total,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		stats[assetID] = counts
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return stats, nil
}

// SaveTreatment saves or replaces a treatment decision.
func (db *DB) SaveTreatment(ctx context.Context, treatment *models.Treatment) error {
	countermeasures, err := marshalJSON(treatment.Countermeasures)
	if err != nil {
		return fmt.Errorf("marshaling countermeasures: %w", err)
	}

	approval := treatment.Approval
	if approval == "" {
		approval = models.ApprovalPending
	}

	query := `
		INSERT INTO treatments (id, analysis_id, risk_id, decision, rationale,
			countermeasures, estimated_cost, original_risk, residual_risk,
			approval_status, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			decision = excluded.decision,
			rationale = excluded.rationale,
			countermeasures = excluded.countermeasures,
			estimated_cost = excluded.estimated_cost,
			residual_risk = excluded.residual_risk,
			approval_status = excluded.approval_status,
			owner = excluded.owner,
			updated_at = excluded.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		treatment.ID,
		treatment.AnalysisID,
		treatment.RiskID,
		treatment.Decision,
		treatment.Rationale,
		countermeasures,
		treatment.EstimatedCost,
		treatment.OriginalRisk,
		treatment.ResidualRisk,
		approval,
		treatment.Owner,
		orNow(treatment.CreatedAt),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving treatment: %w", err)
	}

	return nil
}

// ListTreatments retrieves treatments for an analysis with optional
// filtering, ordered by original risk severity.
func (db *DB) ListTreatments(ctx context.Context, analysisID string, filter TreatmentFilter) ([]*models.Treatment, error) {
	query := `
		SELECT id, analysis_id, risk_id, decision, rationale, countermeasures,
		       estimated_cost, original_risk, residual_risk, approval_status,
		       owner, created_at
		FROM treatments
		WHERE analysis_id = ?
	`
	args := []any{analysisID}

	if filter.Decision != nil {
		query += " AND decision = ?"
		args = append(args, *filter.Decision)
	}

	if filter.Approval != nil {
		query += " AND approval_status = ?"
		args = append(args, *filter.Approval)
	}

	query += `
		ORDER BY
			CASE original_risk
				WHEN 'very_high' THEN 1
				WHEN 'high' THEN 2
				WHEN 'medium' THEN 3
				WHEN 'low' THEN 4
			END,
			created_at`

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying treatments: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var treatments []*models.Treatment
	for rows.Next() {
		treatment := &models.Treatment{}
		var countermeasures sql.NullString

		err := rows.Scan(
			&treatment.ID,
			&treatment.AnalysisID,
			&treatment.RiskID,
			&treatment.Decision,
			&treatment.Rationale,
			&countermeasures,
			&treatment.EstimatedCost,
			&treatment.OriginalRisk,
			&treatment.ResidualRisk,
			&treatment.Approval,
			&treatment.Owner,
			&treatment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if err := unmarshalJSON(countermeasures, &treatment.Countermeasures); err != nil {
			return nil, fmt.Errorf("unmarshaling countermeasures: %w", err)
		}

		treatments = append(treatments, treatment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return treatments, nil
}

// UpdateTreatmentApproval sets the approval status of a treatment.
func (db *DB) UpdateTreatmentApproval(ctx context.Context, treatmentID string, status models.ApprovalStatus) error {
	query := `UPDATE treatments SET approval_status = ?, updated_at = ? WHERE id = ?`

	result, err := db.ExecContext(ctx, query, status, time.Now(), treatmentID)
	if err != nil {
		return fmt.Errorf("updating treatment approval: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("treatment %s not found", treatmentID)
	}

	return nil
}

// SaveGoal saves or replaces a cybersecurity goal.
func (db *DB) SaveGoal(ctx context.Context, goal *models.CybersecurityGoal) error {
	query := `
		INSERT INTO cybersecurity_goals (id, analysis_id, asset_id, treatment_id,
			title, description, property, verification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			property = excluded.property,
			verification = excluded.verification
	`

	_, err := db.ExecContext(ctx, query,
		goal.ID,
		goal.AnalysisID,
		goal.AssetID,
		goal.TreatmentID,
		goal.Title,
		goal.Description,
		goal.Property,
		goal.Verification,
		orNow(goal.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving goal: %w", err)
	}

	return nil
}

// ListGoals retrieves all cybersecurity goals for an analysis.
func (db *DB) ListGoals(ctx context.Context, analysisID string) ([]*models.CybersecurityGoal, error) {
	query := `
		SELECT id, analysis_id, asset_id, treatment_id, title, description,
		       property, verification, created_at
		FROM cybersecurity_goals
		WHERE analysis_id = ?
		ORDER BY title
	`

	rows, err := db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var goals []*models.CybersecurityGoal
	for rows.Next() {
		goal := &models.CybersecurityGoal{}
		err := rows.Scan(
			&goal.ID,
			&goal.AnalysisID,
			&goal.AssetID,
			&goal.TreatmentID,
			&goal.Title,
			&goal.Description,
			&goal.Property,
			&goal.Verification,
			&goal.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return goals, nil
}
