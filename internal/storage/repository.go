package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertPriceBarSQL = `INSERT INTO prices (
        ticker, date, open, high, low, close, volume, adjusted_close
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (ticker, date) DO NOTHING;`

	listPriceBarsSQL = `SELECT
        ticker, date, open, high, low, close, volume, adjusted_close, created_at
    FROM prices
    WHERE ticker = $1
    ORDER BY date;`

	listClosesSQL = `SELECT date, close
    FROM prices
    WHERE ticker = $1
    ORDER BY date;`

	listTickersSQL = `SELECT DISTINCT ticker FROM prices ORDER BY ticker;`

	listTradingDatesSQL = `SELECT DISTINCT date FROM prices ORDER BY date;`

	countPricesOnDatesSQL = `SELECT COUNT(*) FROM prices WHERE date = ANY($1::date[]);`

	listRecentBarsWithLabelsSQL = `SELECT
        p.ticker, p.date, p.open, p.high, p.low, p.close, p.volume, p.adjusted_close, p.created_at,
        l.label_binary, l.label_return
    FROM prices p
    LEFT JOIN labels l ON l.ticker = p.ticker AND l.date = p.date
    WHERE p.ticker = $1
    ORDER BY p.date DESC
    LIMIT $2;`

	insertLabelSQL = `INSERT INTO labels (
        ticker, date, label_binary, label_return, close_t, close_t_plus_1
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (ticker, date) DO NOTHING;`

	listLabelsSQL = `SELECT
        ticker, date, label_binary, label_return, close_t, close_t_plus_1, created_at
    FROM labels
    WHERE ticker = $1
    ORDER BY date;`

	listAllLabelsSQL = `SELECT
        ticker, date, label_binary, label_return, close_t, close_t_plus_1, created_at
    FROM labels
    ORDER BY ticker, date;`

	countLabelsOnDatesSQL = `SELECT COUNT(*) FROM labels WHERE date = ANY($1::date[]);`

	insertArticleSQL = `INSERT INTO news (
        url, ticker, headline, source, published_at, summary
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (url, ticker) DO NOTHING;`

	listHeadlinesSQL = `SELECT ticker, headline, published_at
    FROM news
    ORDER BY ticker, published_at;`

	listArchiveHeadlinesSQL = `SELECT ticker, headline, published_at_utc
    FROM archive_articles
    ORDER BY ticker, published_at_utc;`

	hasTableSQL = `SELECT to_regclass($1) IS NOT NULL;`

	countNewsOnDatesSQL = `SELECT COUNT(*)
    FROM news
    WHERE (published_at AT TIME ZONE $1)::date = ANY($2::date[]);`

	insertRunRecordSQL = `INSERT INTO run_log (
        run_type, status, tickers_attempted, tickers_succeeded, tickers_failed,
        rows_added, duplicates_skipped, error_message, started_at, completed_at, duration_seconds
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    );`
)

// archiveTableName is the optional secondary headline source.
const archiveTableName = "archive_articles"

// InsertPriceBars inserts bars, skipping (ticker, date) duplicates.
func (s *Store) InsertPriceBars(ctx context.Context, bars []PriceBar) (InsertStats, error) {
	pool, err := s.getPool()
	if err != nil {
		return InsertStats{}, err
	}
	if len(bars) == 0 {
		return InsertStats{}, nil
	}

	batch := &pgx.Batch{}
	for _, bar := range bars {
		var adj interface{}
		if bar.AdjustedClose != nil {
			adj = *bar.AdjustedClose
		}
		batch.Queue(insertPriceBarSQL,
			bar.Ticker,
			Day(bar.Date),
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			adj,
		)
	}
	return execInsertBatch(ctx, pool, batch, "insert price bars")
}

// ListPriceBars returns all bars for a ticker in ascending date order.
func (s *Store) ListPriceBars(ctx context.Context, ticker string) ([]PriceBar, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPriceBarsSQL, ticker)
	if queryErr != nil {
		return nil, fmt.Errorf("list price bars: %w", queryErr)
	}
	defer rows.Close()

	bars := make([]PriceBar, 0)
	for rows.Next() {
		bar, scanErr := scanPriceBar(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		bars = append(bars, bar)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bars, nil
}

// ListCloses returns the (date, close) series for a ticker in ascending
// date order.
func (s *Store) ListCloses(ctx context.Context, ticker string) ([]ClosePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listClosesSQL, ticker)
	if queryErr != nil {
		return nil, fmt.Errorf("list closes: %w", queryErr)
	}
	defer rows.Close()

	points := make([]ClosePoint, 0)
	for rows.Next() {
		var p ClosePoint
		if scanErr := rows.Scan(&p.Date, &p.Close); scanErr != nil {
			return nil, scanErr
		}
		points = append(points, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// ListTickers returns every ticker with at least one price bar.
func (s *Store) ListTickers(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTickersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list tickers: %w", queryErr)
	}
	defer rows.Close()

	tickers := make([]string, 0)
	for rows.Next() {
		var t string
		if scanErr := rows.Scan(&t); scanErr != nil {
			return nil, scanErr
		}
		tickers = append(tickers, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tickers, nil
}

// ListTradingDates returns every distinct price date across all tickers in
// ascending order.
func (s *Store) ListTradingDates(ctx context.Context) ([]time.Time, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTradingDatesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list trading dates: %w", queryErr)
	}
	defer rows.Close()

	dates := make([]time.Time, 0)
	for rows.Next() {
		var d time.Time
		if scanErr := rows.Scan(&d); scanErr != nil {
			return nil, scanErr
		}
		dates = append(dates, Day(d))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return dates, nil
}

// CountPricesOnDates counts price rows whose date is in the given set.
func (s *Store) CountPricesOnDates(ctx context.Context, dates []time.Time) (int64, error) {
	return s.countOnDates(ctx, countPricesOnDatesSQL, dates)
}

// ListRecentBarsWithLabels returns the newest bars for a ticker with label
// columns attached where a label exists.
func (s *Store) ListRecentBarsWithLabels(ctx context.Context, ticker string, limit int) ([]BarWithLabel, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentBarsWithLabelsSQL, ticker, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent bars: %w", queryErr)
	}
	defer rows.Close()

	out := make([]BarWithLabel, 0, limit)
	for rows.Next() {
		var (
			rec    BarWithLabel
			adj    sql.NullFloat64
			binary sql.NullInt64
			ret    sql.NullFloat64
		)
		if scanErr := rows.Scan(
			&rec.Ticker,
			&rec.Date,
			&rec.Open,
			&rec.High,
			&rec.Low,
			&rec.Close,
			&rec.Volume,
			&adj,
			&rec.CreatedAt,
			&binary,
			&ret,
		); scanErr != nil {
			return nil, scanErr
		}
		if adj.Valid {
			value := adj.Float64
			rec.AdjustedClose = &value
		}
		if binary.Valid {
			rec.HasLabel = true
			rec.Binary = int(binary.Int64)
			rec.Return = ret.Float64
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// InsertLabels inserts labels, skipping (ticker, date) duplicates.
func (s *Store) InsertLabels(ctx context.Context, labels []Label) (InsertStats, error) {
	pool, err := s.getPool()
	if err != nil {
		return InsertStats{}, err
	}
	if len(labels) == 0 {
		return InsertStats{}, nil
	}

	batch := &pgx.Batch{}
	for _, label := range labels {
		batch.Queue(insertLabelSQL,
			label.Ticker,
			Day(label.Date),
			label.Binary,
			label.Return,
			label.CloseT,
			label.CloseT1,
		)
	}
	return execInsertBatch(ctx, pool, batch, "insert labels")
}

// ListLabels returns a ticker's labels in ascending date order.
func (s *Store) ListLabels(ctx context.Context, ticker string) ([]Label, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listLabelsSQL, ticker)
	if queryErr != nil {
		return nil, fmt.Errorf("list labels: %w", queryErr)
	}
	defer rows.Close()
	return collectLabels(rows)
}

// ListAllLabels returns every label ordered by (ticker, date).
func (s *Store) ListAllLabels(ctx context.Context) ([]Label, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	rows, queryErr := pool.Query(ctx, listAllLabelsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list all labels: %w", queryErr)
	}
	defer rows.Close()
	return collectLabels(rows)
}

// CountLabelsOnDates counts label rows whose date is in the given set.
func (s *Store) CountLabelsOnDates(ctx context.Context, dates []time.Time) (int64, error) {
	return s.countOnDates(ctx, countLabelsOnDatesSQL, dates)
}

// InsertArticles inserts articles, skipping (url, ticker) duplicates.
func (s *Store) InsertArticles(ctx context.Context, articles []Article) (InsertStats, error) {
	pool, err := s.getPool()
	if err != nil {
		return InsertStats{}, err
	}
	if len(articles) == 0 {
		return InsertStats{}, nil
	}

	batch := &pgx.Batch{}
	for _, article := range articles {
		var source, summary interface{}
		if article.Source != "" {
			source = article.Source
		}
		if article.Summary != "" {
			summary = article.Summary
		}
		batch.Queue(insertArticleSQL,
			article.URL,
			article.Ticker,
			article.Headline,
			source,
			article.PublishedAt,
			summary,
		)
	}
	return execInsertBatch(ctx, pool, batch, "insert articles")
}

// ListHeadlines returns the normalized headline projection of the news
// table ordered by (ticker, published_at).
func (s *Store) ListHeadlines(ctx context.Context) ([]Headline, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listHeadlinesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list headlines: %w", queryErr)
	}
	defer rows.Close()

	headlines := make([]Headline, 0)
	for rows.Next() {
		var h Headline
		if scanErr := rows.Scan(&h.Ticker, &h.Headline, &h.PublishedAt); scanErr != nil {
			return nil, scanErr
		}
		headlines = append(headlines, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return headlines, nil
}

// ListArchiveHeadlines reads the optional archive table. Timestamps come
// back as raw text.
func (s *Store) ListArchiveHeadlines(ctx context.Context) ([]ArchiveHeadline, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listArchiveHeadlinesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list archive headlines: %w", queryErr)
	}
	defer rows.Close()

	headlines := make([]ArchiveHeadline, 0)
	for rows.Next() {
		var h ArchiveHeadline
		if scanErr := rows.Scan(&h.Ticker, &h.Headline, &h.PublishedAt); scanErr != nil {
			return nil, scanErr
		}
		headlines = append(headlines, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return headlines, nil
}

// HasArchiveTable reports whether the archive table exists.
func (s *Store) HasArchiveTable(ctx context.Context) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var present bool
	if scanErr := pool.QueryRow(ctx, hasTableSQL, archiveTableName).Scan(&present); scanErr != nil {
		return false, fmt.Errorf("check archive table: %w", scanErr)
	}
	return present, nil
}

// CountNewsOnDates counts news rows whose published_at, rendered in the
// given zone, falls on one of the dates.
func (s *Store) CountNewsOnDates(ctx context.Context, zone string, dates []time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countNewsOnDatesSQL, zone, dayStrings(dates)).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count news on dates: %w", scanErr)
	}
	return count, nil
}

// InsertRunRecord appends one row to the run log.
func (s *Store) InsertRunRecord(ctx context.Context, rec RunRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if rec.ErrorMessage != "" {
		errMsg = rec.ErrorMessage
	}

	duration := rec.CompletedAt.Sub(rec.StartedAt).Seconds()
	if _, execErr := pool.Exec(ctx, insertRunRecordSQL,
		rec.RunType,
		rec.Status,
		rec.TickersAttempted,
		rec.TickersSucceeded,
		rec.TickersFailed,
		rec.RowsAdded,
		rec.DuplicatesSkipped,
		errMsg,
		rec.StartedAt,
		rec.CompletedAt,
		duration,
	); execErr != nil {
		return fmt.Errorf("insert run record: %w", execErr)
	}
	return nil
}

func (s *Store) countOnDates(ctx context.Context, query string, dates []time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, query, dayStrings(dates)).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count rows on dates: %w", scanErr)
	}
	return count, nil
}

func execInsertBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, op string) (InsertStats, error) {
	var stats InsertStats
	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}
		if tag.RowsAffected() == 0 {
			stats.Duplicates++
		} else {
			stats.Inserted++
		}
	}
	return stats, nil
}

func scanPriceBar(rows pgx.Rows) (PriceBar, error) {
	var (
		bar PriceBar
		adj sql.NullFloat64
	)
	if err := rows.Scan(
		&bar.Ticker,
		&bar.Date,
		&bar.Open,
		&bar.High,
		&bar.Low,
		&bar.Close,
		&bar.Volume,
		&adj,
		&bar.CreatedAt,
	); err != nil {
		return PriceBar{}, err
	}
	if adj.Valid {
		value := adj.Float64
		bar.AdjustedClose = &value
	}
	return bar, nil
}

func collectLabels(rows pgx.Rows) ([]Label, error) {
	labels := make([]Label, 0)
	for rows.Next() {
		var l Label
		if err := rows.Scan(
			&l.Ticker,
			&l.Date,
			&l.Binary,
			&l.Return,
			&l.CloseT,
			&l.CloseT1,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return labels, nil
}

func dayStrings(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(DayFormat)
	}
	return out
}
