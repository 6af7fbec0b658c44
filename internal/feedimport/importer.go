package feedimport

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Importer is the single entry point for a feed import. Each Run fetches
// the full catalog, extracts and normalizes its records, and merges them
// into a fresh store transaction. Runs are synchronous and sequential;
// concurrent invocations are not coordinated here, the unique index on the
// external ID is the backstop and a losing insert shows up as a per-record
// error on the slower run.
type Importer struct {
	fetcher Fetcher
	stores  StoreOpener
	cfg     FeedConfig
}

func NewImporter(stores StoreOpener, fetcher Fetcher, cfg FeedConfig) *Importer {
	if fetcher == nil {
		fetcher = NewArchiveFetcher(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}
	return &Importer{
		fetcher: fetcher,
		stores:  stores,
		cfg:     cfg,
	}
}

// DefaultURL returns the configured catalog URL.
func (im *Importer) DefaultURL() string {
	return im.cfg.URL
}

// Run executes one import. A whole-run failure before merging (fetch,
// archive, parse) returns zero counts and a single error; once merging has
// started, failures accumulate per record and the run completes, except
// for a failed final commit which is appended as the run's terminal error.
func (im *Importer) Run(ctx context.Context, url string) Result {
	res := Result{Errors: []string{}}

	if url == "" {
		url = im.cfg.URL
	}

	log.Printf("[import] downloading catalog from %s", url)
	doc, err := im.fetcher.FetchCatalog(ctx, url)
	if err != nil {
		return failedRun(res, err)
	}

	log.Printf("[import] parsing catalog (%d bytes)", len(doc))
	records, recordErrs, err := ExtractRecords(doc)
	if err != nil {
		return failedRun(res, err)
	}
	res.Errors = appendCapped(res.Errors, im.cfg.MaxErrors, recordErrs...)

	log.Printf("[import] merging %d records", len(records))
	store, err := im.stores.OpenImportStore(ctx)
	if err != nil {
		return failedRun(res, fmt.Errorf("failed to open import store: %w", err))
	}

	out, err := merge(ctx, records, store, im.cfg.CommitBatch)
	res.Imported = out.Imported
	res.Skipped = out.Skipped
	res.Errors = appendCapped(res.Errors, im.cfg.MaxErrors, out.Errors...)
	if err != nil {
		// Final commit failed. Counts reflect what the run attempted;
		// earlier committed batches remain persisted.
		res.Failed = true
		res.Errors = append(res.Errors, fmt.Sprintf("import failed: %v", err))
		log.Printf("[import] run failed during final commit: %v", err)
		return res
	}

	log.Printf("[import] complete: %d imported, %d skipped, %d errors", res.Imported, res.Skipped, len(res.Errors))
	return res
}

func failedRun(res Result, err error) Result {
	res.Failed = true
	res.Errors = append(res.Errors, fmt.Sprintf("import failed: %v", err))
	log.Printf("[import] run failed: %v", err)
	return res
}

// appendCapped grows the error list up to max entries. A badly malformed
// feed can produce an error per candidate; the cap keeps the result (and
// the JSON response carrying it) bounded. One marker records suppression.
func appendCapped(dst []string, max int, items ...string) []string {
	for _, item := range items {
		if len(dst) >= max {
			if len(dst) == max {
				dst = append(dst, fmt.Sprintf("further errors suppressed after %d entries", max))
			}
			return dst
		}
		dst = append(dst, item)
	}
	return dst
}
