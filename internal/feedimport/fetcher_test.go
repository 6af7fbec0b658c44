package feedimport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func zipWithEntries(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestFetchCatalog(t *testing.T) {
	payload := zipWithEntries(t, map[string]string{
		"GrantsDBExtract.xml": "<Grants></Grants>",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(payload)
	}))
	defer srv.Close()

	doc, err := NewArchiveFetcher(0).FetchCatalog(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if string(doc) != "<Grants></Grants>" {
		t.Errorf("doc = %q", doc)
	}
}

func TestFetchCatalogUppercaseEntry(t *testing.T) {
	payload := zipWithEntries(t, map[string]string{
		"EXTRACT.XML": "<Grants/>",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	doc, err := NewArchiveFetcher(0).FetchCatalog(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("extension match must be case-insensitive: %v", err)
	}
	if len(doc) == 0 {
		t.Error("empty document")
	}
}

func TestFetchCatalogBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewArchiveFetcher(0).FetchCatalog(context.Background(), srv.URL)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
}

func TestFetchCatalogNotAZip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance page</html>"))
	}))
	defer srv.Close()

	_, err := NewArchiveFetcher(0).FetchCatalog(context.Background(), srv.URL)
	var archiveErr *ArchiveError
	if !errors.As(err, &archiveErr) {
		t.Fatalf("err = %v, want *ArchiveError", err)
	}
}

func TestFetchCatalogNoXMLEntry(t *testing.T) {
	payload := zipWithEntries(t, map[string]string{
		"readme.txt": "nothing here",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	_, err := NewArchiveFetcher(0).FetchCatalog(context.Background(), srv.URL)
	var archiveErr *ArchiveError
	if !errors.As(err, &archiveErr) {
		t.Fatalf("err = %v, want *ArchiveError", err)
	}
}
