package feedimport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultFeedURL is the upstream registry's full database extract.
const DefaultFeedURL = "https://www.grants.gov/xml/extract/GrantsDBExtractv2.zip"

const catalogExtension = ".xml"

// ArchiveFetcher downloads the compressed catalog archive and yields the
// bytes of the single XML document inside it. One attempt per call; any
// failure surfaces immediately to the orchestrator.
type ArchiveFetcher struct {
	Client *http.Client
}

func NewArchiveFetcher(timeout time.Duration) *ArchiveFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ArchiveFetcher{
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (f *ArchiveFetcher) FetchCatalog(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/zip, application/octet-stream")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return extractCatalog(payload)
}

// extractCatalog opens the zip payload and returns the first entry whose
// name ends in the catalog extension.
func extractCatalog(payload []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, &ArchiveError{Err: err}
	}

	for _, entry := range zr.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), catalogExtension) {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, &ArchiveError{Err: fmt.Errorf("opening %s: %w", entry.Name, err)}
		}
		doc, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &ArchiveError{Err: fmt.Errorf("reading %s: %w", entry.Name, err)}
		}
		return doc, nil
	}

	return nil, &ArchiveError{Err: errors.New("no XML document found in archive")}
}
