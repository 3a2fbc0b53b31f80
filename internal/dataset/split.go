package dataset

import (
	"fmt"
	"time"
)

// InsufficientDataError signals fewer distinct trading dates than the
// minimum needed to form three non-empty splits.
type InsufficientDataError struct {
	Got  int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d distinct trading dates, have %d", e.Need, e.Got)
}

// ConfigError marks a caller mistake, such as split ratios that leave a
// partition empty or a reference to a table that does not exist.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// SplitAssignment partitions an ordered date set by position. Every input
// date lands in exactly one field and order is preserved.
type SplitAssignment struct {
	Train []time.Time
	Val   []time.Time
	Test  []time.Time
}

// Split partitions ascending distinct trading dates chronologically.
// Train takes floor(n*trainRatio) dates but at least one; val extends to
// floor(n*(trainRatio+valRatio)) but always holds at least one date; test
// keeps at least the final date. Ratios that cannot satisfy all three
// return a ConfigError.
func Split(dates []time.Time, trainRatio, valRatio float64) (SplitAssignment, error) {
	if trainRatio <= 0 || trainRatio >= 1 || valRatio < 0 || trainRatio+valRatio >= 1 {
		return SplitAssignment{}, &ConfigError{
			Reason: fmt.Sprintf("invalid split ratios train=%.2f val=%.2f", trainRatio, valRatio),
		}
	}
	n := len(dates)
	if n < 3 {
		return SplitAssignment{}, &InsufficientDataError{Got: n, Need: 3}
	}

	trainEnd := int(float64(n) * trainRatio)
	if trainEnd < 1 {
		trainEnd = 1
	}
	valEnd := int(float64(n) * (trainRatio + valRatio))
	if valEnd < trainEnd+1 {
		valEnd = trainEnd + 1
	}
	if valEnd > n-1 {
		valEnd = n - 1
	}
	if trainEnd >= valEnd {
		return SplitAssignment{}, &ConfigError{
			Reason: fmt.Sprintf("split ratios train=%.2f val=%.2f leave no validation dates for %d trading days",
				trainRatio, valRatio, n),
		}
	}

	return SplitAssignment{
		Train: dates[:trainEnd],
		Val:   dates[trainEnd:valEnd],
		Test:  dates[valEnd:],
	}, nil
}
