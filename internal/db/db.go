// Package db provides PostgreSQL persistence for pipeline runs and results.
// Persistence is optional: the CLI runs fully without a database, and callers
// treat save failures as warnings rather than aborting the batch.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateRun creates a new pipeline run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, inputPath string, companyCount int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (input_path, company_count, status)
		 VALUES ($1, $2, 'running')
		 RETURNING id`,
		inputPath, companyCount,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a pipeline run as finished with aggregate counters
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, resolved, errored int, cost float64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, resolved_count = $2, error_count = $3, total_cost = $4, completed_at = NOW()
		 WHERE id = $5`,
		status, resolved, errored, cost, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveResult stores one company's PipelineResult as JSON
func (db *DB) SaveResult(ctx context.Context, runID uuid.UUID, result *types.PipelineResult) error {
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO pipeline_results (run_id, company_id, company_name, outcome, valid_contacts, cost_estimate, result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, company_id) DO UPDATE
		 SET outcome = $4, valid_contacts = $5, cost_estimate = $6, result = $7, created_at = NOW()`,
		runID, result.Company.ID, result.Company.Name, string(result.Outcome),
		result.ValidCount(), result.CostEstimate, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", result.Company.Name, err)
	}
	return nil
}

// SaveReviewItem stores one manual-review entry (a flagged domain or a
// gray-zone contact) for the review queue UI
func (db *DB) SaveReviewItem(ctx context.Context, runID uuid.UUID, companyID, kind string, item any) error {
	jsonBytes, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal review item: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO review_items (run_id, company_id, kind, item)
		 VALUES ($1, $2, $3, $4)`,
		runID, companyID, kind, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save review item for %s: %w", companyID, err)
	}
	return nil
}

// GetResult retrieves a stored PipelineResult by run and company
func (db *DB) GetResult(ctx context.Context, runID uuid.UUID, companyID string) (*types.PipelineResult, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT result FROM pipeline_results WHERE run_id = $1 AND company_id = $2`,
		runID, companyID,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result types.PipelineResult
	if err := json.Unmarshal(content, &result); err != nil {
		return nil, fmt.Errorf("failed to parse stored result: %w", err)
	}
	return &result, nil
}

// ListResults retrieves all results for a run, optionally filtered by outcome
func (db *DB) ListResults(ctx context.Context, runID uuid.UUID, outcome *string) ([]types.PipelineResult, error) {
	query := `SELECT result FROM pipeline_results WHERE run_id = $1`
	args := []interface{}{runID}

	if outcome != nil {
		query += " AND outcome = $2"
		args = append(args, *outcome)
	}

	query += " ORDER BY created_at"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []types.PipelineResult
	for rows.Next() {
		var content []byte
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		var result types.PipelineResult
		if err := json.Unmarshal(content, &result); err != nil {
			return nil, fmt.Errorf("failed to parse stored result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
