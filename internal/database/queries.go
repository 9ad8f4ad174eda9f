package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/autogt/autogt/internal/models"
)

// marshalJSON encodes v for a nullable JSON column, returning NULL for
// empty values.
func marshalJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	if s == "null" || s == "[]" || s == "{}" {
		return nil, nil
	}
	return s, nil
}

func unmarshalJSON(raw sql.NullString, v any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), v)
}

// CreateAnalysis inserts a new analysis record.
func (db *DB) CreateAnalysis(ctx context.Context, analysis *models.Analysis) error {
	timestamps, err := marshalJSON(analysis.CompletedSteps)
	if err != nil {
		return fmt.Errorf("marshaling step timestamps: %w", err)
	}

	query := `
		INSERT INTO analyses (id, name, vehicle, scope, status, current_step,
			completed_steps, step_timestamps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		analysis.ID,
		analysis.Name,
		analysis.Vehicle,
		analysis.Scope,
		analysis.Status,
		analysis.CurrentStep,
		completedFlag(analysis),
		timestamps,
		analysis.CreatedAt,
		analysis.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}

	return nil
}

// UpdateAnalysis replaces the mutable fields of an analysis.
func (db *DB) UpdateAnalysis(ctx context.Context, analysis *models.Analysis) error {
	timestamps, err := marshalJSON(analysis.CompletedSteps)
	if err != nil {
		return fmt.Errorf("marshaling step timestamps: %w", err)
	}

	query := `
		UPDATE analyses
		SET name = ?, vehicle = ?, scope = ?, status = ?, current_step = ?,
			completed_steps = ?, step_timestamps = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := db.ExecContext(ctx, query,
		analysis.Name,
		analysis.Vehicle,
		analysis.Scope,
		analysis.Status,
		analysis.CurrentStep,
		completedFlag(analysis),
		timestamps,
		time.Now(),
		analysis.ID,
	)
	if err != nil {
		return fmt.Errorf("updating analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("analysis %s not found", analysis.ID)
	}

	return nil
}

func completedFlag(analysis *models.Analysis) StepFlag {
	var flags StepFlag
	for step := range analysis.CompletedSteps {
		flags.AddStep(step)
	}
	return flags
}

// GetAnalysis retrieves an analysis by ID.
func (db *DB) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	query := `
		SELECT id, name, vehicle, scope, status, current_step,
		       step_timestamps, created_at, updated_at
		FROM analyses
		WHERE id = ?
	`

	analysis, err := scanAnalysis(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}

	return analysis, nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*models.Analysis, error) {
	analysis := &models.Analysis{}
	var timestamps sql.NullString

	err := row.Scan(
		&analysis.ID,
		&analysis.Name,
		&analysis.Vehicle,
		&analysis.Scope,
		&analysis.Status,
		&analysis.CurrentStep,
		&timestamps,
		&analysis.CreatedAt,
		&analysis.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	analysis.CompletedSteps = make(map[models.TaraStep]time.Time)
	if err := unmarshalJSON(timestamps, &analysis.CompletedSteps); err != nil {
		return nil, fmt.Errorf("unmarshaling step timestamps: %w", err)
	}

	return analysis, nil
}

// ListAnalyses retrieves analyses with optional filtering and pagination,
// most recent first.
func (db *DB) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*models.Analysis, error) {
	query := `
		SELECT id, name, vehicle, scope, status, current_step,
		       step_timestamps, created_at, updated_at
		FROM analyses
		WHERE 1=1
	`

	var args []any

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, *filter.Status)
	}

	if filter.Vehicle != nil {
		query += " AND vehicle = ?"
		args = append(args, *filter.Vehicle)
	}

	if filter.CompletedStep != nil {
		query += " AND completed_steps & ? != 0"
		args = append(args, flagFor(*filter.CompletedStep))
	}

	query += " ORDER BY created_at DESC"

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
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var analyses []*models.Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		analyses = append(analyses, analysis)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return analyses, nil
}

// DeleteAnalysis deletes an analysis and all its work products.
func (db *DB) DeleteAnalysis(ctx context.Context, id string) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		// Children before parents so foreign keys stay satisfied.
		children := []string{
			"DELETE FROM cybersecurity_goals WHERE analysis_id = ?",
			"DELETE FROM treatments WHERE analysis_id = ?",
			"DELETE FROM risk_values WHERE analysis_id = ?",
			"DELETE FROM feasibility_ratings WHERE analysis_id = ?",
			"DELETE FROM attack_paths WHERE analysis_id = ?",
			"DELETE FROM threat_scenarios WHERE analysis_id = ?",
			"DELETE FROM impact_ratings WHERE analysis_id = ?",
			"DELETE FROM assets WHERE analysis_id = ?",
		}
		for _, query := range children {
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("deleting work products: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting analysis: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("analysis %s not found", id)
		}

		return nil
	})
}

// BatchInsertAssets inserts multiple assets efficiently.
func (db *DB) BatchInsertAssets(ctx context.Context, assets []*models.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	// Process in chunks to avoid SQL query size limits.
	const chunkSize = 500

	for i := 0; i < len(assets); i += chunkSize {
		end := i + chunkSize
		if end > len(assets) {
			end = len(assets)
		}

		if err := db.insertAssetChunk(ctx, assets[i:end]); err != nil {
			return fmt.Errorf("inserting chunk %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (db *DB) insertAssetChunk(ctx context.Context, assets []*models.Asset) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO assets (id, analysis_id, name, asset_type, description,
				interfaces, properties, criticality, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				asset_type = excluded.asset_type,
				description = excluded.description,
				interfaces = excluded.interfaces,
				properties = excluded.properties,
				criticality = excluded.criticality
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, asset := range assets {
			interfaces, err := marshalJSON(asset.Interfaces)
			if err != nil {
				return fmt.Errorf("marshaling interfaces: %w", err)
			}
			properties, err := marshalJSON(asset.Properties)
			if err != nil {
				return fmt.Errorf("marshaling properties: %w", err)
			}

			criticality := asset.Criticality
			if criticality == "" {
				criticality = models.CriticalityMedium
			}

			createdAt := asset.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}

			_, err = stmt.ExecContext(ctx,
				asset.ID,
				asset.AnalysisID,
				asset.Name,
				asset.Type,
				asset.Description,
				interfaces,
				properties,
				criticality,
				createdAt,
			)
			if err != nil {
				return fmt.Errorf("inserting asset %s: %w", asset.Name, err)
			}
		}

		return nil
	})
}

// GetAsset retrieves an asset by ID.
func (db *DB) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	query := assetSelect + " WHERE id = ?"

	asset, err := scanAsset(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("asset %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying asset: %w", err)
	}

	return asset, nil
}

const assetSelect = `
	SELECT id, analysis_id, name, asset_type, description,
	       interfaces, properties, criticality, created_at
	FROM assets`

func scanAsset(row rowScanner) (*models.Asset, error) {
	asset := &models.Asset{}
	var interfaces, properties sql.NullString

	err := row.Scan(
		&asset.ID,
		&asset.AnalysisID,
		&asset.Name,
		&asset.Type,
		&asset.Description,
		&interfaces,
		&properties,
		&asset.Criticality,
		&asset.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(interfaces, &asset.Interfaces); err != nil {
		return nil, fmt.Errorf("unmarshaling interfaces: %w", err)
	}
	if err := unmarshalJSON(properties, &asset.Properties); err != nil {
		return nil, fmt.Errorf("unmarshaling properties: %w", err)
	}

	return asset, nil
}

// ListAssets retrieves all assets for an analysis, most critical first.
func (db *DB) ListAssets(ctx context.Context, analysisID string) ([]*models.Asset, error) {
	query := assetSelect + `
		WHERE analysis_id = ?
		ORDER BY
			CASE criticality
				WHEN 'critical' THEN 1
				WHEN 'high' THEN 2
				WHEN 'medium' THEN 3
				WHEN 'low' THEN 4
			END,
			name`

	rows, err := db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return assets, nil
}

// BatchInsertThreats inserts multiple threat scenarios efficiently.
func (db *DB) BatchInsertThreats(ctx context.Context, threats []*models.ThreatScenario) error {
	if len(threats) == 0 {
		return nil
	}

	const chunkSize = 500

	for i := 0; i < len(threats); i += chunkSize {
		end := i + chunkSize
		if end > len(threats) {
			end = len(threats)
		}

		if err := db.insertThreatChunk(ctx, threats[i:end]); err != nil {
			return fmt.Errorf("inserting chunk %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (db *DB) insertThreatChunk(ctx context.Context, threats []*models.ThreatScenario) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO threat_scenarios (id, analysis_id, asset_id, name, category,
				description, damage_scenario, vector, property, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				damage_scenario = excluded.damage_scenario,
				vector = excluded.vector,
				property = excluded.property,
				source = excluded.source
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, threat := range threats {
			source := threat.Source
			if source == "" {
				source = models.SourceHeuristic
			}

			createdAt := threat.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}

			_, err := stmt.ExecContext(ctx,
				threat.ID,
				threat.AnalysisID,
				threat.AssetID,
				threat.Name,
				threat.Category,
				threat.Description,
				threat.DamageScenario,
				threat.Vector,
				threat.Property,
				source,
				createdAt,
			)
			if err != nil {
				return fmt.Errorf("inserting threat %s: %w", threat.Name, err)
			}
		}

		return nil
	})
}

const threatSelect = `
	SELECT id, analysis_id, asset_id, name, category, description,
	       damage_scenario, vector, property, source, created_at
	FROM threat_scenarios`

func scanThreat(row rowScanner) (*models.ThreatScenario, error) {
	threat := &models.ThreatScenario{}
	err := row.Scan(
		&threat.ID,
		&threat.AnalysisID,
		&threat.AssetID,
		&threat.Name,
		&threat.Category,
		&threat.Description,
		&threat.DamageScenario,
		&threat.Vector,
		&threat.Property,
		&threat.Source,
		&threat.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return threat, nil
}

// ListThreats retrieves threat scenarios for an analysis with optional
// filtering.
func (db *DB) ListThreats(ctx context.Context, analysisID string, filter ThreatFilter) ([]*models.ThreatScenario, error) {
	query := threatSelect + " WHERE analysis_id = ?"
	args := []any{analysisID}

	if filter.AssetID != nil {
		query += " AND asset_id = ?"
		args = append(args, *filter.AssetID)
	}

	if filter.Category != nil {
		query += " AND category = ?"
		args = append(args, *filter.Category)
	}

	if filter.Vector != nil {
		query += " AND vector = ?"
		args = append(args, *filter.Vector)
	}

	query += " ORDER BY asset_id, category, name"

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
		return nil, fmt.Errorf("querying threats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var threats []*models.ThreatScenario
	for rows.Next() {
		threat, err := scanThreat(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		threats = append(threats, threat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return threats, nil
}

// SearchThreats performs a text search across threat names, descriptions,
// and damage scenarios.
func (db *DB) SearchThreats(ctx context.Context, analysisID, searchTerm string, limit int) ([]*models.ThreatScenario, error) {
	query := threatSelect + `
		WHERE analysis_id = ?
		  AND (name LIKE ? OR description LIKE ? OR damage_scenario LIKE ?)
		ORDER BY category, name
		LIMIT ?`

	pattern := "%" + strings.ToLower(searchTerm) + "%"

	rows, err := db.QueryContext(ctx, query, analysisID, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching threats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var threats []*models.ThreatScenario
	for rows.Next() {
		threat, err := scanThreat(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		threats = append(threats, threat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return threats, nil
}
