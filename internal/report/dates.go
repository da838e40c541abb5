package report

import (
	"strings"
	"time"
)

// reportDateLayouts are tried in order. Reports carry either ISO dates or
// locale month-year strings.
var reportDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2006",
	"Jan 2006",
}

// ParseReportDate parses a report date in ISO or locale month-year form.
func ParseReportDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseYearMonth parses a YYYY-MM (or YYYY-MM-DD) account-open date.
func parseYearMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01", "2006-01-02", "January 2006", "Jan 2006", "01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
