package feedimport

import "fmt"

// The importer distinguishes whole-run failures (fetch, archive, parse,
// final commit) from per-record failures, which are collected as strings
// on the Result and never abort the run.

// FetchError is a transport-level failure reaching the upstream URL.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to download catalog from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ArchiveError means the downloaded payload is not a valid zip, or the
// archive contains no catalog document.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("invalid catalog archive: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// ParseError means the catalog document is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog parsing error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CommitError means the final batch commit failed. Batches committed
// earlier in the run stay persisted; a re-run will find and skip them.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("database commit failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
