package feedimport

import (
	"context"
	"fmt"
)

// mergeOutcome is the fold result of pushing records through a Store:
// counts plus the per-record failures that did not stop the run.
type mergeOutcome struct {
	Imported int
	Skipped  int
	Errors   []string
}

// merge folds records into the store. Existing rows (matched by external
// ID) are counted and left untouched so curator edits survive re-imports.
// New rows are inserted and committed in batches; a failed insert or batch
// commit is recorded and the loop continues. Only a failed final commit is
// fatal: the in-progress batch is rolled back and a CommitError returned.
// Batches committed before that point stay persisted.
func merge(ctx context.Context, records []Record, store Store, batchSize int) (mergeOutcome, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	out := mergeOutcome{}
	for _, rec := range records {
		exists, err := store.FindByExternalID(ctx, rec.ExternalID)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("error importing grant %s: %v", rec.ExternalID, err))
			continue
		}
		if exists {
			out.Skipped++
			continue
		}

		if err := store.Insert(ctx, rec); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("error importing grant %s: %v", rec.ExternalID, err))
			continue
		}
		out.Imported++

		if out.Imported%batchSize == 0 {
			if err := store.Commit(ctx); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("error committing batch at %d imported: %v", out.Imported, err))
			}
		}
	}

	if err := store.Commit(ctx); err != nil {
		_ = store.Rollback(ctx)
		return out, &CommitError{Err: err}
	}

	return out, nil
}
