package feedimport

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func wrapCatalog(inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?><Grants>` + inner + `</Grants>`)
}

func opportunityXML(tag string, fields map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<%s>", tag)
	for k, v := range fields {
		fmt.Fprintf(&b, "<%s>%s</%s>", k, v, k)
	}
	fmt.Fprintf(&b, "</%s>", tag)
	return b.String()
}

func TestExtractRecordsTagVariants(t *testing.T) {
	for _, tag := range []string{"OpportunityForecastDetail", "OpportunitySynopsisDetail_1_0", "Opportunity"} {
		t.Run(tag, func(t *testing.T) {
			doc := wrapCatalog(opportunityXML(tag, map[string]string{
				"OpportunityID":    "12345",
				"OpportunityTitle": "Clean Water Initiative",
				"AgencyName":       "EPA",
			}))

			records, errs, err := ExtractRecords(doc)
			if err != nil {
				t.Fatalf("ExtractRecords: %v", err)
			}
			if len(errs) != 0 {
				t.Fatalf("unexpected record errors: %v", errs)
			}
			if len(records) != 1 {
				t.Fatalf("got %d records, want 1", len(records))
			}
			if records[0].ExternalID != "12345" {
				t.Errorf("ExternalID = %q", records[0].ExternalID)
			}
		})
	}
}

func TestExtractRecordFieldAliases(t *testing.T) {
	doc := wrapCatalog(opportunityXML("OpportunitySynopsisDetail_1_0", map[string]string{
		"OpportunityID":          "777",
		"OpportunityTitle":       "Refugee Education Fund",
		"AgencyCode":             "ED-01",
		"OpportunityDescription": "Supports schooling programs.",
		"ClosingDate":            "03/15/2026",
		"ApplicantEligibility":   "Nonprofits only.",
		"EstimatedTotalProgramFunding": "500000",
	}))

	records, errs, err := ExtractRecords(doc)
	if err != nil || len(errs) != 0 {
		t.Fatalf("ExtractRecords: err=%v recordErrs=%v", err, errs)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Organizer != "ED-01" {
		t.Errorf("Organizer = %q, want AgencyCode fallback", rec.Organizer)
	}
	if rec.Description != "Supports schooling programs." {
		t.Errorf("Description = %q", rec.Description)
	}
	if rec.Eligibility != "Nonprofits only." {
		t.Errorf("Eligibility = %q", rec.Eligibility)
	}
	if rec.Amount != "500000" {
		t.Errorf("Amount = %q", rec.Amount)
	}
	if rec.ApplyURL != "https://www.grants.gov/search-results-detail/777" {
		t.Errorf("ApplyURL = %q", rec.ApplyURL)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if rec.Deadline == nil || !rec.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", rec.Deadline, want)
	}
}

func TestExtractRecordDefaults(t *testing.T) {
	doc := wrapCatalog(opportunityXML("Opportunity", map[string]string{
		"OpportunityID":    "42",
		"OpportunityTitle": "Untitled Agency Grant",
		"CloseDate":        "someday",
	}))

	records, _, err := ExtractRecords(doc)
	if err != nil {
		t.Fatalf("ExtractRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Organizer != "Unknown Agency" {
		t.Errorf("Organizer = %q, want placeholder", rec.Organizer)
	}
	if rec.Deadline != nil {
		t.Errorf("unparseable deadline should stay nil, got %v", rec.Deadline)
	}
	if rec.Description != "" || rec.Eligibility != "" || rec.Amount != "" {
		t.Errorf("missing optional fields should stay empty: %+v", rec)
	}
}

func TestExtractRecordsSkipsIncomplete(t *testing.T) {
	doc := wrapCatalog(
		opportunityXML("Opportunity", map[string]string{"OpportunityTitle": "No ID"}) +
			opportunityXML("Opportunity", map[string]string{"OpportunityID": "900"}) +
			opportunityXML("Opportunity", map[string]string{"OpportunityID": "901", "OpportunityTitle": "Complete"}),
	)

	records, errs, err := ExtractRecords(doc)
	if err != nil {
		t.Fatalf("ExtractRecords: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("incomplete listings must not produce errors, got %v", errs)
	}
	if len(records) != 1 || records[0].ExternalID != "901" {
		t.Fatalf("got %+v, want only record 901", records)
	}
}

func TestExtractRecordTruncation(t *testing.T) {
	doc := wrapCatalog(opportunityXML("Opportunity", map[string]string{
		"OpportunityID":    "1",
		"OpportunityTitle": strings.Repeat("t", 600),
		"AgencyName":       strings.Repeat("a", 300),
		"Description":      strings.Repeat("d", 2500),
		"Eligibility":      strings.Repeat("e", 1500),
		"AwardCeiling":     strings.Repeat("9", 150),
	}))

	records, _, err := ExtractRecords(doc)
	if err != nil || len(records) != 1 {
		t.Fatalf("ExtractRecords: err=%v records=%d", err, len(records))
	}

	rec := records[0]
	if got := len([]rune(rec.Title)); got != 500 {
		t.Errorf("title length = %d, want 500", got)
	}
	if got := len([]rune(rec.Organizer)); got != 200 {
		t.Errorf("organizer length = %d, want 200", got)
	}
	if got := len([]rune(rec.Description)); got != 2000 {
		t.Errorf("description length = %d, want 2000", got)
	}
	if got := len([]rune(rec.Eligibility)); got != 1000 {
		t.Errorf("eligibility length = %d, want 1000", got)
	}
	if got := len([]rune(rec.Amount)); got != 100 {
		t.Errorf("amount length = %d, want 100", got)
	}
}

func TestTruncateMultibyte(t *testing.T) {
	s := strings.Repeat("ñ", 10)
	got := truncate(s, 4)
	if got != "ññññ" {
		t.Errorf("truncate = %q, want 4 runes intact", got)
	}
}

func TestCleanFieldText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "Plain text stays.", want: "Plain text stays."},
		{name: "whitespace collapsed", input: "Too   many\n\nspaces", want: "Too many spaces"},
		{name: "markup stripped", input: "<p>Hello <b>world</b>.</p>", want: "Hello world."},
		{name: "script removed", input: `<p>Safe</p><script>alert("x")</script>`, want: "Safe"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanFieldText(tt.input)
			if err != nil {
				t.Fatalf("cleanFieldText(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("cleanFieldText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
