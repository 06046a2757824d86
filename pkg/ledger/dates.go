package ledger

import (
	"fmt"
	"regexp"
	"time"
)

var bareDateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseBoundaryDate accepts either an RFC 3339 timestamp or a bare
// YYYY-MM-DD calendar date; bare dates are normalized to midnight UTC.
func ParseBoundaryDate(s string) (time.Time, error) {
	if bareDateRE.MatchString(s) {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", s)
		}
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

// DateKey returns the UTC calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
