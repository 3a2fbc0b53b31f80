package storage

import (
	"time"
)

// DayFormat renders trading-day keys.
const DayFormat = "2006-01-02"

// Day reduces a timestamp to its calendar day, keyed at UTC midnight.
// The year/month/day are taken in t's own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PriceBar is one daily OHLCV observation for a ticker.
type PriceBar struct {
	Ticker        string
	Date          time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	AdjustedClose *float64
	CreatedAt     time.Time
}

// ClosePoint is the (date, close) projection used by label generation.
type ClosePoint struct {
	Date  time.Time
	Close float64
}

// Article is one collected news item. The same article may apply to
// several tickers, hence the (url, ticker) uniqueness.
type Article struct {
	URL         string
	Ticker      string
	Headline    string
	Source      string
	PublishedAt time.Time
	Summary     string
	CreatedAt   time.Time
}

// Headline is the projection of the news table consumed by the news
// dataset builder.
type Headline struct {
	Ticker      string
	Headline    string
	PublishedAt time.Time
}

// ArchiveHeadline is a row from the optional read-only archive table.
// Its timestamps are raw text and may fail to parse.
type ArchiveHeadline struct {
	Ticker      string
	Headline    string
	PublishedAt string
}

// Label is the ground-truth direction for one (ticker, date) pair. Date is
// the earlier day of the compared pair; Binary is 1 when the next close is
// strictly higher.
type Label struct {
	Ticker    string
	Date      time.Time
	Binary    int
	Return    float64
	CloseT    float64
	CloseT1   float64
	CreatedAt time.Time
}

// BarWithLabel joins a price bar to its label when one exists.
type BarWithLabel struct {
	PriceBar
	HasLabel bool
	Binary   int
	Return   float64
}

// RunRecord captures the outcome of one collection run.
type RunRecord struct {
	RunType           string
	Status            string
	TickersAttempted  int
	TickersSucceeded  int
	TickersFailed     int
	RowsAdded         int
	DuplicatesSkipped int
	ErrorMessage      string
	StartedAt         time.Time
	CompletedAt       time.Time
}

// InsertStats accumulates per-row insert outcomes for a batch.
type InsertStats struct {
	Inserted   int
	Duplicates int
}

// Add merges another batch's outcome counts.
func (s *InsertStats) Add(other InsertStats) {
	s.Inserted += other.Inserted
	s.Duplicates += other.Duplicates
}

// Total returns the number of rows attempted.
func (s InsertStats) Total() int {
	return s.Inserted + s.Duplicates
}
