package feedimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
	"github.com/microcosm-cc/bluemonday"
)

// The upstream schema has gone through several revisions that renamed the
// repeated opportunity element. Variants are tried in order and the first
// one that yields any matches wins, so no version detection is needed.
var opportunityTagVariants = []string{
	"OpportunityForecastDetail",
	"OpportunitySynopsisDetail_1_0",
	"Opportunity",
}

// Per-field alias tags, tried in order; the first non-empty value wins.
// The same revisions that renamed the opportunity element also shuffled
// field tags, so every optional field carries its historical names.
var (
	externalIDTags  = []string{"OpportunityID"}
	titleTags       = []string{"OpportunityTitle"}
	organizerTags   = []string{"AgencyName", "AgencyCode"}
	descriptionTags = []string{"Description", "OpportunityDescription", "AdditionalInformation"}
	deadlineTags    = []string{"CloseDate", "ClosingDate"}
	eligibilityTags = []string{"EligibilityCategory", "ApplicantEligibility", "Eligibility"}
	amountTags      = []string{"AwardCeiling", "EstimatedTotalProgramFunding"}
)

// Field length caps matching the storage layer's limits. A violation here
// would otherwise surface as a storage error during merge.
const (
	maxTitleLen       = 500
	maxOrganizerLen   = 200
	maxDescriptionLen = 2000
	maxEligibilityLen = 1000
	maxAmountLen      = 100
)

const unknownOrganizer = "Unknown Agency"

// applyURLBase is the registry's public detail page; the apply URL is
// derived from it deterministically, never taken from the feed.
const applyURLBase = "https://www.grants.gov/search-results-detail"

var textPolicy = bluemonday.StrictPolicy()

// ExtractRecords parses the raw catalog document and converts each
// opportunity element into a normalized Record. A malformed document fails
// the whole run; a bad candidate only produces an entry in the returned
// error list. Candidates missing the identifier or title are incomplete
// listings, an expected upstream condition, and are skipped without an
// error entry.
func ExtractRecords(doc []byte) ([]Record, []string, error) {
	root, err := xmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	var candidates []*xmlquery.Node
	for _, tag := range opportunityTagVariants {
		candidates = xmlquery.Find(root, "//"+tag)
		if len(candidates) > 0 {
			break
		}
	}

	var (
		records []Record
		errs    []string
	)
	for _, node := range candidates {
		rec, ok, err := extractRecord(node)
		if err != nil {
			errs = append(errs, fmt.Sprintf("error parsing opportunity: %v", err))
			continue
		}
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records, errs, nil
}

// extractRecord converts one opportunity element. ok is false for an
// incomplete listing (no identifier or title); err is reserved for actual
// extraction failures.
func extractRecord(node *xmlquery.Node) (Record, bool, error) {
	externalID := firstTagText(node, externalIDTags)
	if externalID == "" {
		return Record{}, false, nil
	}

	title := firstTagText(node, titleTags)
	if title == "" {
		return Record{}, false, nil
	}

	organizer := firstTagText(node, organizerTags)
	if organizer == "" {
		organizer = unknownOrganizer
	}

	description, err := cleanFieldText(firstTagText(node, descriptionTags))
	if err != nil {
		return Record{}, false, fmt.Errorf("description for %s: %w", externalID, err)
	}
	eligibility, err := cleanFieldText(firstTagText(node, eligibilityTags))
	if err != nil {
		return Record{}, false, fmt.Errorf("eligibility for %s: %w", externalID, err)
	}

	rec := Record{
		ExternalID:  externalID,
		Title:       truncate(title, maxTitleLen),
		Organizer:   truncate(organizer, maxOrganizerLen),
		Description: truncate(description, maxDescriptionLen),
		Eligibility: truncate(eligibility, maxEligibilityLen),
		Amount:      truncate(firstTagText(node, amountTags), maxAmountLen),
		ApplyURL:    fmt.Sprintf("%s/%s", applyURLBase, externalID),
	}

	if raw := firstTagText(node, deadlineTags); raw != "" {
		if t, ok := ParseFeedDate(raw); ok {
			rec.Deadline = &t
		}
	}

	return rec, true, nil
}

// firstTagText returns the trimmed text of the first alias tag that has a
// non-empty value under node.
func firstTagText(node *xmlquery.Node, tags []string) string {
	for _, tag := range tags {
		if child := node.SelectElement(tag); child != nil {
			if text := strings.TrimSpace(child.InnerText()); text != "" {
				return text
			}
		}
	}
	return ""
}

// cleanFieldText strips markup that the feed's free-text fields sometimes
// carry and collapses whitespace. Unsafe tags go through the sanitizer
// first so stray scripts never reach the text pass.
func cleanFieldText(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !strings.Contains(s, "<") {
		return normalizeSpace(s), nil
	}

	safe := textPolicy.Sanitize(s)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(safe))
	if err != nil {
		return "", err
	}
	return normalizeSpace(doc.Text()), nil
}

// normalizeSpace collapses runs of whitespace into single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at max characters (runes, not bytes, so a multibyte
// value is never cut mid-sequence).
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
