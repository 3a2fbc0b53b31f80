package dataset

import (
	"errors"
	"testing"

	"updown-dataset/internal/storage"
)

func newTestCutoff(t *testing.T) *Cutoff {
	t.Helper()
	c, err := NewCutoff("America/New_York", 16)
	if err != nil {
		t.Fatalf("build cutoff: %v", err)
	}
	return c
}

func TestPredictionDateResolution(t *testing.T) {
	c := newTestCutoff(t)
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"afternoon before cutoff", "2025-01-06T14:00:00-05:00", "2025-01-07"},
		{"evening after cutoff", "2025-01-06T17:00:00-05:00", "2025-01-08"},
		{"exactly at cutoff hour", "2025-01-06T16:00:00-05:00", "2025-01-08"},
		{"one minute before cutoff", "2025-01-06T15:59:00-05:00", "2025-01-07"},
		{"utc instant before cutoff", "2025-01-06T20:00:00Z", "2025-01-07"},
		{"utc instant after cutoff", "2025-01-06T22:00:00Z", "2025-01-08"},
		{"naive assumed reference zone", "2025-01-06 14:00:00", "2025-01-07"},
		{"naive with t separator", "2025-01-06T17:00:00", "2025-01-08"},
		{"date only counts as midnight", "2025-01-06", "2025-01-07"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.PredictionDate(tc.value)
			if err != nil {
				t.Fatalf("resolve %q: %v", tc.value, err)
			}
			if want := day(tc.want); !got.Equal(want) {
				t.Fatalf("expected %s, got %s", tc.want, got.Format(storage.DayFormat))
			}
		})
	}
}

func TestPredictionDateKeepsWeekends(t *testing.T) {
	// 2025-01-10 is a Friday. Late news maps two calendar days ahead to
	// Sunday; the join against trading-day labels discards it later.
	c := newTestCutoff(t)
	got, err := c.PredictionDate("2025-01-10T17:00:00-05:00")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := day("2025-01-12"); !got.Equal(want) {
		t.Fatalf("expected Sunday 2025-01-12, got %s", got.Format(storage.DayFormat))
	}
}

func TestPredictionDateParseError(t *testing.T) {
	c := newTestCutoff(t)
	for _, value := range []string{"", "  ", "not a timestamp", "01/06/2025"} {
		_, err := c.PredictionDate(value)
		if err == nil {
			t.Fatalf("expected error for %q", value)
		}
		var parseErr *TimestampParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected TimestampParseError for %q, got %v", value, err)
		}
		if parseErr.Value != value {
			t.Fatalf("expected offending value %q in error, got %q", value, parseErr.Value)
		}
	}
}

func TestNewCutoffRejectsBadInputs(t *testing.T) {
	if _, err := NewCutoff("America/New_York", 24); err == nil {
		t.Fatal("expected error for out of range hour")
	}
	if _, err := NewCutoff("Not/AZone", 16); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
