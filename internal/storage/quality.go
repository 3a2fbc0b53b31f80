package storage

import (
	"context"
	"fmt"
	"time"
)

const (
	countNonPositiveCloseSQL = `SELECT COUNT(*) FROM prices WHERE close <= 0;`

	countInvertedRangeSQL = `SELECT COUNT(*) FROM prices WHERE high < low;`

	countZeroVolumeSQL = `SELECT COUNT(*) FROM prices WHERE volume = 0;`

	listExtremeMovesSQL = `SELECT ticker, date, prev_close, close,
        (close - prev_close) / prev_close * 100 AS change_pct
    FROM (
        SELECT ticker, date, close,
               LAG(close) OVER (PARTITION BY ticker ORDER BY date) AS prev_close
        FROM prices
    ) moves
    WHERE prev_close IS NOT NULL
      AND prev_close > 0
      AND ABS((close - prev_close) / prev_close) > $1
    ORDER BY ticker, date;`

	listPriceCoverageSQL = `SELECT ticker, COUNT(*), MIN(date), MAX(date)
    FROM prices
    GROUP BY ticker
    ORDER BY ticker;`

	countBlankNewsFieldsSQL = `SELECT COUNT(*) FROM news WHERE url = '' OR headline = '';`

	countFutureNewsSQL = `SELECT COUNT(*) FROM news
    WHERE published_at > now() + make_interval(secs => $1);`

	listArticleCountsSQL = `SELECT ticker, COUNT(*)
    FROM news
    GROUP BY ticker
    ORDER BY ticker;`
)

// ExtremeMove flags a day-over-day close change beyond the threshold.
type ExtremeMove struct {
	Ticker    string
	Date      time.Time
	PrevClose float64
	Close     float64
	ChangePct float64
}

// TickerCoverage summarises stored price history for one ticker.
type TickerCoverage struct {
	Ticker    string
	Rows      int64
	FirstDate time.Time
	LastDate  time.Time
}

// TickerArticles counts stored articles for one ticker.
type TickerArticles struct {
	Ticker   string
	Articles int64
}

// PriceQuality is the result of the price data-quality checks.
type PriceQuality struct {
	NonPositiveClose int64
	InvertedRanges   int64
	ZeroVolumeDays   int64
	ExtremeMoves     []ExtremeMove
	Coverage         []TickerCoverage
}

// Clean reports whether no check found a problem. Coverage is
// informational and does not count against cleanliness.
func (q PriceQuality) Clean() bool {
	return q.NonPositiveClose == 0 && q.InvertedRanges == 0 &&
		q.ZeroVolumeDays == 0 && len(q.ExtremeMoves) == 0
}

// NewsQuality is the result of the news data-quality checks.
type NewsQuality struct {
	BlankFields    int64
	FutureArticles int64
	PerTicker      []TickerArticles
}

// Clean reports whether no check found a problem.
func (q NewsQuality) Clean() bool {
	return q.BlankFields == 0 && q.FutureArticles == 0
}

// CheckPriceQuality runs the price data-quality queries. moveThreshold is
// the fractional day-over-day change considered suspicious (0.20 flags
// moves above 20%).
func (s *Store) CheckPriceQuality(ctx context.Context, moveThreshold float64) (PriceQuality, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceQuality{}, err
	}

	var report PriceQuality
	counts := []struct {
		query string
		dest  *int64
	}{
		{countNonPositiveCloseSQL, &report.NonPositiveClose},
		{countInvertedRangeSQL, &report.InvertedRanges},
		{countZeroVolumeSQL, &report.ZeroVolumeDays},
	}
	for _, c := range counts {
		if scanErr := pool.QueryRow(ctx, c.query).Scan(c.dest); scanErr != nil {
			return PriceQuality{}, fmt.Errorf("price quality count: %w", scanErr)
		}
	}

	rows, queryErr := pool.Query(ctx, listExtremeMovesSQL, moveThreshold)
	if queryErr != nil {
		return PriceQuality{}, fmt.Errorf("list extreme moves: %w", queryErr)
	}
	defer rows.Close()
	for rows.Next() {
		var m ExtremeMove
		if scanErr := rows.Scan(&m.Ticker, &m.Date, &m.PrevClose, &m.Close, &m.ChangePct); scanErr != nil {
			return PriceQuality{}, scanErr
		}
		report.ExtremeMoves = append(report.ExtremeMoves, m)
	}
	if rows.Err() != nil {
		return PriceQuality{}, rows.Err()
	}
	rows.Close()

	coverage, queryErr := pool.Query(ctx, listPriceCoverageSQL)
	if queryErr != nil {
		return PriceQuality{}, fmt.Errorf("list price coverage: %w", queryErr)
	}
	defer coverage.Close()
	for coverage.Next() {
		var c TickerCoverage
		if scanErr := coverage.Scan(&c.Ticker, &c.Rows, &c.FirstDate, &c.LastDate); scanErr != nil {
			return PriceQuality{}, scanErr
		}
		report.Coverage = append(report.Coverage, c)
	}
	if coverage.Err() != nil {
		return PriceQuality{}, coverage.Err()
	}

	return report, nil
}

// CheckNewsQuality runs the news data-quality queries. futureSkew is the
// tolerated clock drift before a published_at counts as "in the future".
func (s *Store) CheckNewsQuality(ctx context.Context, futureSkew time.Duration) (NewsQuality, error) {
	pool, err := s.getPool()
	if err != nil {
		return NewsQuality{}, err
	}

	var report NewsQuality
	if scanErr := pool.QueryRow(ctx, countBlankNewsFieldsSQL).Scan(&report.BlankFields); scanErr != nil {
		return NewsQuality{}, fmt.Errorf("count blank news fields: %w", scanErr)
	}
	if scanErr := pool.QueryRow(ctx, countFutureNewsSQL, futureSkew.Seconds()).Scan(&report.FutureArticles); scanErr != nil {
		return NewsQuality{}, fmt.Errorf("count future news: %w", scanErr)
	}

	rows, queryErr := pool.Query(ctx, listArticleCountsSQL)
	if queryErr != nil {
		return NewsQuality{}, fmt.Errorf("list article counts: %w", queryErr)
	}
	defer rows.Close()
	for rows.Next() {
		var t TickerArticles
		if scanErr := rows.Scan(&t.Ticker, &t.Articles); scanErr != nil {
			return NewsQuality{}, scanErr
		}
		report.PerTicker = append(report.PerTicker, t)
	}
	if rows.Err() != nil {
		return NewsQuality{}, rows.Err()
	}

	return report, nil
}
