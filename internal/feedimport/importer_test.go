package feedimport

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubFetcher struct {
	doc []byte
	err error
}

func (f *stubFetcher) FetchCatalog(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type stubOpener struct {
	store *mockStore
	err   error
	opens int
}

func (o *stubOpener) OpenImportStore(ctx context.Context) (Store, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.store, nil
}

func testConfig() FeedConfig {
	return FeedConfig{URL: DefaultFeedURL, TimeoutSeconds: 60, CommitBatch: 100, MaxErrors: 100}
}

func TestImporterRun(t *testing.T) {
	doc := wrapCatalog(
		opportunityXML("OpportunitySynopsisDetail_1_0", map[string]string{
			"OpportunityID": "100", "OpportunityTitle": "New Grant", "AgencyName": "HHS",
		}) +
			opportunityXML("OpportunitySynopsisDetail_1_0", map[string]string{
				"OpportunityID": "200", "OpportunityTitle": "Known Grant", "AgencyName": "HHS",
			}) +
			opportunityXML("OpportunitySynopsisDetail_1_0", map[string]string{
				"OpportunityID": "300",
			}),
	)

	opener := &stubOpener{store: newMockStore("200")}
	im := NewImporter(opener, &stubFetcher{doc: doc}, testConfig())

	res := im.Run(context.Background(), "")
	if res.Imported != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 1 imported 1 skipped", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Errors)
	}
	if opener.store.commits != 1 {
		t.Errorf("commits = %d, want 1", opener.store.commits)
	}
}

func TestImporterRunFetchFailure(t *testing.T) {
	opener := &stubOpener{store: newMockStore()}
	fetchErr := &FetchError{URL: DefaultFeedURL, Err: errors.New("connection refused")}
	im := NewImporter(opener, &stubFetcher{err: fetchErr}, testConfig())

	res := im.Run(context.Background(), "")
	if res.Imported != 0 || res.Skipped != 0 {
		t.Errorf("result = %+v, want zero counts", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "import failed:") {
		t.Errorf("Errors = %v", res.Errors)
	}
	if !res.Failed {
		t.Error("a fetch failure is a whole-run failure")
	}
	if opener.opens != 0 {
		t.Error("store must not be opened when the fetch fails")
	}
}

func TestImporterRunInsertFailuresStillComplete(t *testing.T) {
	doc := wrapCatalog(
		opportunityXML("Opportunity", map[string]string{
			"OpportunityID": "10", "OpportunityTitle": "Good",
		}) +
			opportunityXML("Opportunity", map[string]string{
				"OpportunityID": "11", "OpportunityTitle": "Bad",
			}),
	)
	store := newMockStore()
	store.insertErrs["11"] = errors.New("value too long")
	im := NewImporter(&stubOpener{store: store}, &stubFetcher{doc: doc}, testConfig())

	res := im.Run(context.Background(), "")
	if res.Failed {
		t.Error("per-record errors must not mark the run failed")
	}
	if res.Imported != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestImporterRunOpenStoreFailure(t *testing.T) {
	doc := wrapCatalog(opportunityXML("Opportunity", map[string]string{
		"OpportunityID": "1", "OpportunityTitle": "T",
	}))
	opener := &stubOpener{err: errors.New("pool exhausted")}
	im := NewImporter(opener, &stubFetcher{doc: doc}, testConfig())

	res := im.Run(context.Background(), "")
	if res.Imported != 0 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestImporterRunFinalCommitFailure(t *testing.T) {
	doc := wrapCatalog(opportunityXML("Opportunity", map[string]string{
		"OpportunityID": "1", "OpportunityTitle": "T",
	}))
	store := newMockStore()
	store.commitErrs = []error{errors.New("connection reset")}
	im := NewImporter(&stubOpener{store: store}, &stubFetcher{doc: doc}, testConfig())

	res := im.Run(context.Background(), "")
	if res.Imported != 1 {
		t.Errorf("Imported = %d, counts must survive the failed commit", res.Imported)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "import failed: database commit failed") {
		t.Errorf("Errors = %v", res.Errors)
	}
	if !res.Failed {
		t.Error("a failed final commit is a whole-run failure")
	}
}

func TestAppendCapped(t *testing.T) {
	var errs []string
	for i := 0; i < 5; i++ {
		errs = appendCapped(errs, 3, "boom")
	}
	if len(errs) != 4 {
		t.Fatalf("len = %d, want cap plus marker", len(errs))
	}
	if !strings.Contains(errs[3], "further errors suppressed after 3 entries") {
		t.Errorf("marker = %q", errs[3])
	}
}

func TestLoadFeedConfig(t *testing.T) {
	cfg, err := LoadFeedConfig()
	if err != nil {
		t.Fatalf("LoadFeedConfig: %v", err)
	}
	if cfg.URL != DefaultFeedURL {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.TimeoutSeconds != 60 || cfg.CommitBatch != 100 || cfg.MaxErrors != 100 {
		t.Errorf("cfg = %+v", cfg)
	}
}
