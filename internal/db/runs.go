package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/david/grant-portal/internal/models"
)

// RecordImportRun inserts an audit row for an import that just started
// and returns its id so the run can be finished later.
func (s *Store) RecordImportRun(ctx context.Context, sourceURL string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO import_runs (source_url, status)
		VALUES ($1, 'running')
		RETURNING id
	`, sourceURL).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record import run: %w", err)
	}
	return id, nil
}

// FinishImportRun stamps the run with its outcome.
func (s *Store) FinishImportRun(ctx context.Context, id uuid.UUID, status string, imported, skipped, errorCount int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE import_runs
		SET status = $2, imported = $3, skipped = $4, error_count = $5, completed_at = NOW()
		WHERE id = $1
	`, id, status, imported, skipped, errorCount)
	if err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	return nil
}

// ListImportRuns returns the most recent runs, newest first.
func (s *Store) ListImportRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_url, status, imported, skipped, error_count, started_at, completed_at
		FROM import_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	runs := []models.ImportRun{}
	for rows.Next() {
		var r models.ImportRun
		if err := rows.Scan(&r.ID, &r.SourceURL, &r.Status, &r.Imported, &r.Skipped, &r.ErrorCount, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
