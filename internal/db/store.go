package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/grant-portal/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListParams filters grant listings. VerifiedFilter applies only to admin
// listings: "verified", "unverified" or "" for all.
type ListParams struct {
	Country        string
	VerifiedFilter string
	Limit          int
	Offset         int
}

const grantCols = `id, title, organizer, deadline, COALESCE(description, ''), COALESCE(eligibility, ''),
	apply_url, COALESCE(amount, ''), source, external_id, refugee_country,
	is_verified, is_active, created_at, updated_at`

func scanGrant(scan func(dest ...interface{}) error) (models.Grant, error) {
	var g models.Grant
	err := scan(
		&g.ID, &g.Title, &g.Organizer, &g.Deadline, &g.Description, &g.Eligibility,
		&g.ApplyURL, &g.Amount, &g.Source, &g.ExternalID, &g.RefugeeCountry,
		&g.IsVerified, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

// ListPublicGrants returns verified, active grants ordered by nearest
// deadline first. Country filters on the curator-assigned tag.
func (s *Store) ListPublicGrants(ctx context.Context, params ListParams) ([]models.Grant, error) {
	where := "WHERE is_verified = TRUE AND is_active = TRUE"
	var args []interface{}
	argIdx := 1

	if params.Country != "" {
		where += fmt.Sprintf(" AND refugee_country = $%d", argIdx)
		args = append(args, params.Country)
		argIdx++
	}

	sql := fmt.Sprintf(`SELECT %s FROM grants %s ORDER BY deadline ASC NULLS LAST LIMIT $%d OFFSET $%d`,
		grantCols, where, argIdx, argIdx+1)
	args = append(args, normalizeLimit(params.Limit), params.Offset)

	return s.queryGrants(ctx, sql, args...)
}

// ListAdminGrants returns grants for the curation views, newest first.
func (s *Store) ListAdminGrants(ctx context.Context, params ListParams) ([]models.Grant, error) {
	where := "WHERE 1=1"
	switch params.VerifiedFilter {
	case "verified":
		where += " AND is_verified = TRUE"
	case "unverified":
		where += " AND is_verified = FALSE"
	}

	sql := fmt.Sprintf(`SELECT %s FROM grants %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`, grantCols, where)
	return s.queryGrants(ctx, sql, normalizeLimit(params.Limit), params.Offset)
}

func (s *Store) queryGrants(ctx context.Context, sql string, args ...interface{}) ([]models.Grant, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	grants := []models.Grant{}
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return grants, nil
}

func (s *Store) GetGrant(ctx context.Context, id uuid.UUID) (*models.Grant, error) {
	sql := fmt.Sprintf("SELECT %s FROM grants WHERE id = $1", grantCols)
	g, err := scanGrant(s.pool.QueryRow(ctx, sql, id).Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindGrantByExternalID looks a grant up by the upstream feed identifier.
func (s *Store) FindGrantByExternalID(ctx context.Context, externalID string) (*models.Grant, error) {
	sql := fmt.Sprintf("SELECT %s FROM grants WHERE external_id = $1", grantCols)
	g, err := scanGrant(s.pool.QueryRow(ctx, sql, externalID).Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GrantInput carries the writable fields for manual grant creation.
type GrantInput struct {
	Title          string     `json:"title"`
	Organizer      string     `json:"organizer"`
	Deadline       *time.Time `json:"deadline"`
	Description    string     `json:"description"`
	Eligibility    string     `json:"eligibility"`
	ApplyURL       string     `json:"apply_url"`
	Amount         string     `json:"amount"`
	RefugeeCountry *string    `json:"refugee_country"`
}

func (s *Store) CreateGrant(ctx context.Context, in GrantInput) (*models.Grant, error) {
	sql := fmt.Sprintf(`
		INSERT INTO grants (title, organizer, deadline, description, eligibility, apply_url, amount, source, refugee_country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s
	`, grantCols)

	g, err := scanGrant(s.pool.QueryRow(ctx, sql,
		in.Title, in.Organizer, in.Deadline, nilIfEmpty(in.Description), nilIfEmpty(in.Eligibility),
		in.ApplyURL, nilIfEmpty(in.Amount), models.SourceManual, in.RefugeeCountry,
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("insert failed: %w", err)
	}
	return &g, nil
}

// GrantUpdate carries a partial update; nil fields are left as they are.
type GrantUpdate struct {
	Title          *string    `json:"title"`
	Organizer      *string    `json:"organizer"`
	Deadline       *time.Time `json:"deadline"`
	Description    *string    `json:"description"`
	Eligibility    *string    `json:"eligibility"`
	ApplyURL       *string    `json:"apply_url"`
	Amount         *string    `json:"amount"`
	RefugeeCountry *string    `json:"refugee_country"`
}

func (s *Store) UpdateGrant(ctx context.Context, id uuid.UUID, upd GrantUpdate) (*models.Grant, error) {
	set := "updated_at = NOW()"
	var args []interface{}
	argIdx := 1

	addField := func(col string, val interface{}) {
		set += fmt.Sprintf(", %s = $%d", col, argIdx)
		args = append(args, val)
		argIdx++
	}

	if upd.Title != nil {
		addField("title", *upd.Title)
	}
	if upd.Organizer != nil {
		addField("organizer", *upd.Organizer)
	}
	if upd.Deadline != nil {
		addField("deadline", *upd.Deadline)
	}
	if upd.Description != nil {
		addField("description", nilIfEmpty(*upd.Description))
	}
	if upd.Eligibility != nil {
		addField("eligibility", nilIfEmpty(*upd.Eligibility))
	}
	if upd.ApplyURL != nil {
		addField("apply_url", *upd.ApplyURL)
	}
	if upd.Amount != nil {
		addField("amount", nilIfEmpty(*upd.Amount))
	}
	if upd.RefugeeCountry != nil {
		addField("refugee_country", nilIfEmpty(*upd.RefugeeCountry))
	}

	sql := fmt.Sprintf("UPDATE grants SET %s WHERE id = $%d RETURNING %s", set, argIdx, grantCols)
	args = append(args, id)

	g, err := scanGrant(s.pool.QueryRow(ctx, sql, args...).Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	return &g, nil
}

func (s *Store) DeleteGrant(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM grants WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetVerified flips the curation flag that gates public visibility.
func (s *Store) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.Grant, error) {
	return s.setFlag(ctx, id, "is_verified", verified)
}

// SetActive flips the availability flag; an inactive grant is hidden even
// when verified.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Grant, error) {
	return s.setFlag(ctx, id, "is_active", active)
}

func (s *Store) setFlag(ctx context.Context, id uuid.UUID, col string, val bool) (*models.Grant, error) {
	sql := fmt.Sprintf("UPDATE grants SET %s = $1, updated_at = NOW() WHERE id = $2 RETURNING %s", col, grantCols)
	g, err := scanGrant(s.pool.QueryRow(ctx, sql, val, id).Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update failed: %w", err)
	}
	return &g, nil
}

func (s *Store) GrantStats(ctx context.Context) (map[string]int, error) {
	sql := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE NOT is_verified),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE source = $1),
			COUNT(*) FILTER (WHERE source = $2)
		FROM grants
	`
	var total, verified, unverified, active, imported, manual int
	err := s.pool.QueryRow(ctx, sql, models.SourceExternalFeed, models.SourceManual).Scan(
		&total, &verified, &unverified, &active, &imported, &manual,
	)
	if err != nil {
		return nil, fmt.Errorf("stats query failed: %w", err)
	}

	return map[string]int{
		"total":      total,
		"verified":   verified,
		"unverified": unverified,
		"active":     active,
		"imported":   imported,
		"manual":     manual,
	}, nil
}

// normalizeLimit clamps listing page sizes to sane bounds.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// nilIfEmpty returns nil for empty strings so NULL is stored in DB.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
