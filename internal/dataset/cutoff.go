package dataset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"updown-dataset/internal/storage"
)

// TimestampParseError marks a published_at value that could not be
// interpreted. Callers drop the affected record and continue.
type TimestampParseError struct {
	Value string
	Err   error
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampParseError) Unwrap() error { return e.Err }

// naiveLayouts cover timestamps without an explicit offset; they are
// interpreted in the reference zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Cutoff maps article timestamps to the trading day they may predict:
// before the cutoff hour the next day, at or after it the day after that.
// The arithmetic is plain calendar addition. A result may land on a
// weekend or holiday; such rows drop out later when joined against
// trading-day label keys.
type Cutoff struct {
	loc  *time.Location
	hour int
}

// NewCutoff builds a resolver for the given reference zone and local
// cutoff hour.
func NewCutoff(zone string, hour int) (*Cutoff, error) {
	if hour < 0 || hour > 23 {
		return nil, &ConfigError{Reason: fmt.Sprintf("cutoff hour %d out of range", hour)}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("load cutoff zone %q: %v", zone, err)}
	}
	return &Cutoff{loc: loc, hour: hour}, nil
}

// PredictionDateAt resolves an already-parsed instant to its prediction
// day, keyed at UTC midnight.
func (c *Cutoff) PredictionDateAt(t time.Time) time.Time {
	local := t.In(c.loc)
	days := 1
	if local.Hour() >= c.hour {
		days = 2
	}
	return storage.Day(local.AddDate(0, 0, days))
}

// PredictionDate parses a raw timestamp and resolves it. Values without an
// offset are assumed to already be in the reference zone.
func (c *Cutoff) PredictionDate(value string) (time.Time, error) {
	t, err := c.parse(value)
	if err != nil {
		return time.Time{}, &TimestampParseError{Value: value, Err: err}
	}
	return c.PredictionDateAt(t), nil
}

func (c *Cutoff) parse(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, c.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unsupported timestamp layout")
}

// Zone reports the reference zone name.
func (c *Cutoff) Zone() string {
	return c.loc.String()
}
