package models

import (
	"time"

	"github.com/google/uuid"
)

// Source values for Grant.Source.
const (
	SourceManual       = "manual"
	SourceExternalFeed = "external-feed"
)

type Grant struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Organizer   string     `json:"organizer"`
	Deadline    *time.Time `json:"deadline"`
	Description string     `json:"description"`
	Eligibility string     `json:"eligibility"`
	ApplyURL    string     `json:"apply_url"`
	Amount      string     `json:"amount"`

	// Source tracking. ExternalID is the upstream feed's stable identifier,
	// unique across the table and used as the dedup key on import.
	Source     string  `json:"source"`
	ExternalID *string `json:"external_id"`

	// Admin curation fields. Imported grants start unverified and active;
	// country is assigned manually after review.
	RefugeeCountry *string `json:"refugee_country"`
	IsVerified     bool    `json:"is_verified"`
	IsActive       bool    `json:"is_active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// ImportRun is a persisted audit record of one feed import invocation.
// The importer itself returns its result as a value; the API layer records
// this row around the call so operators can review run history.
type ImportRun struct {
	ID          uuid.UUID  `json:"id"`
	SourceURL   string     `json:"source_url"`
	Status      string     `json:"status"` // running, completed, failed
	Imported    int        `json:"imported"`
	Skipped     int        `json:"skipped"`
	ErrorCount  int        `json:"error_count"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
