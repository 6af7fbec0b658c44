package feedimport

import (
	"context"
	"time"
)

// Record is the normalized form of one opportunity extracted from the
// upstream catalog. Field lengths are already capped to the storage
// limits by the extractor.
type Record struct {
	ExternalID  string
	Title       string
	Organizer   string
	Description string
	Eligibility string
	Deadline    *time.Time
	ApplyURL    string
	Amount      string
}

// Result is what one import invocation returns to the caller. It is a
// plain value created per run; the importer keeps no counters between
// invocations. Failed is set only for whole-run failures (fetch, archive,
// parse, final commit); a run that merely accumulated per-record errors
// still completed.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
	Failed   bool     `json:"-"`
}

// Store is the unit of work the merge engine drives. Existing rows are
// never updated or deleted through it; the import only checks existence
// and inserts. Commit finishes the current batch and opens the next one.
type Store interface {
	FindByExternalID(ctx context.Context, externalID string) (bool, error)
	Insert(ctx context.Context, rec Record) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// StoreOpener hands the importer a fresh Store per run.
type StoreOpener interface {
	OpenImportStore(ctx context.Context) (Store, error)
}

// Fetcher retrieves the decompressed catalog document from a URL.
type Fetcher interface {
	FetchCatalog(ctx context.Context, url string) ([]byte, error)
}
