package feedimport

import (
	"strings"
	"time"
)

// feedDateLayouts are tried in order and the order is load-bearing: the
// month-first slash layout comes before the day-first one, so an ambiguous
// value like 03/04/2026 resolves to March 4. The upstream feed has shipped
// both conventions over the years; month-first matches the bulk of records,
// but day/month can be silently swapped for day-first dates whose day is 12
// or less. Kept as-is for compatibility with historical imports.
var feedDateLayouts = []string{
	"01/02/2006", // 01/31/2026
	"2006-01-02", // 2026-01-31
	"01-02-2006", // 01-31-2026
	"02/01/2006", // 31/01/2026
	"2006/01/02", // 2026/01/31
}

// ParseFeedDate resolves a free-form date string from the feed into a
// timestamp. An unparseable or empty string is not an error; the record
// simply carries no deadline.
func ParseFeedDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range feedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
