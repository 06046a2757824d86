package ledger

import (
	"testing"
	"time"
)

func TestParseBoundaryDateBare(t *testing.T) {
	got, err := ParseBoundaryDate("2026-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("bare date should normalize to midnight UTC: got %v", got)
	}
}

func TestParseBoundaryDateRFC3339(t *testing.T) {
	got, err := ParseBoundaryDate("2026-01-15T10:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseBoundaryDateInvalid(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "2026-13-40", "15/01/2026"} {
		if _, err := ParseBoundaryDate(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestDateKey(t *testing.T) {
	// A timestamp late in the day in a western zone still keys on its UTC day.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2026, 1, 15, 22, 0, 0, 0, loc)
	if got := DateKey(ts); got != "2026-01-16" {
		t.Errorf("DateKey = %s, want 2026-01-16", got)
	}
}
