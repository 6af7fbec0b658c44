package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/david/grant-portal/internal/feedimport"
	"github.com/david/grant-portal/internal/models"
)

// ImportTx is a transactional write handle for feed imports. Each Insert
// runs inside a savepoint so a bad record does not poison the batch
// transaction, and Commit opens a fresh transaction so the importer can
// keep writing after a batch checkpoint.
type ImportTx struct {
	pool pgxBeginner
	tx   pgx.Tx
}

type pgxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OpenImportStore starts an import transaction for the merge engine.
func (s *Store) OpenImportStore(ctx context.Context) (feedimport.Store, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	return &ImportTx{pool: s.pool, tx: tx}, nil
}

func (t *ImportTx) FindByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM grants WHERE external_id = $1)", externalID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("existence check failed: %w", err)
	}
	return exists, nil
}

func (t *ImportTx) Insert(ctx context.Context, rec feedimport.Record) error {
	// Savepoint per record: a unique violation (concurrent import, dup
	// entry in the feed) must not abort the surrounding transaction.
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint failed: %w", err)
	}

	_, err = sp.Exec(ctx, `
		INSERT INTO grants (title, organizer, deadline, description, eligibility, apply_url, amount, source, external_id, is_verified, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, TRUE)
	`,
		rec.Title, rec.Organizer, rec.Deadline, nilIfEmpty(rec.Description), nilIfEmpty(rec.Eligibility),
		rec.ApplyURL, nilIfEmpty(rec.Amount), models.SourceExternalFeed, rec.ExternalID,
	)
	if err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

// Commit checkpoints the work so far and opens a new transaction for the
// records that follow.
func (t *ImportTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return err
	}
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin follow-up transaction: %w", err)
	}
	t.tx = tx
	return nil
}

func (t *ImportTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
