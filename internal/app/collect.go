package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"updown-dataset/internal/fetcher"
	"updown-dataset/internal/storage"
)

const (
	runTypePrices = "price_collection"
	runTypeNews   = "news_collection"

	runStatusCompleted           = "completed"
	runStatusCompletedWithErrors = "completed_with_errors"
	runStatusFailed              = "failed"
)

// Collect fetches price history and company news for the configured
// tickers and stores both, recording one run log row per stage. A ticker
// that fails does not stop the run; a stage that fails for every ticker
// does.
func (a *App) Collect(ctx context.Context, opts CollectOptions) error {
	if opts.PricesOnly && opts.NewsOnly {
		return errors.New("--prices-only and --news-only are mutually exclusive")
	}

	tickers := a.Config.ResolveTickers(opts.Tickers)

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	priceDays := a.Config.Prices.HistoryDays
	newsDays := a.Config.News.LookbackDays
	if opts.Days > 0 {
		priceDays = opts.Days
		newsDays = opts.Days
	}
	priceFrom := to.AddDate(0, 0, -priceDays)
	newsFrom := to.AddDate(0, 0, -newsDays)
	if opts.From != nil {
		priceFrom = opts.From.UTC()
		newsFrom = opts.From.UTC()
	}
	if !priceFrom.Before(to) {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if !opts.NewsOnly {
		if err := a.collectPrices(ctx, store, tickers, priceFrom, to); err != nil {
			return err
		}
	}
	if !opts.PricesOnly {
		if err := a.collectNews(ctx, store, tickers, newsFrom, to); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) collectPrices(ctx context.Context, store *storage.Store, tickers []string, from, to time.Time) error {
	source := a.newPriceSource()
	rec := storage.RunRecord{
		RunType:          runTypePrices,
		TickersAttempted: len(tickers),
		StartedAt:        time.Now().UTC(),
	}
	var stats storage.InsertStats
	var failures []string

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return err
		}
		bars, err := source.DailyBars(ctx, ticker, from, to)
		if err != nil {
			rec.TickersFailed++
			failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
			a.Logger.Error().Err(err).Str("ticker", ticker).Msg("price fetch failed")
			continue
		}
		inserted, err := store.InsertPriceBars(ctx, bars)
		if err != nil {
			rec.TickersFailed++
			failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
			a.Logger.Error().Err(err).Str("ticker", ticker).Msg("price insert failed")
			continue
		}
		rec.TickersSucceeded++
		stats.Add(inserted)
		a.Logger.Info().Str("ticker", ticker).
			Int("rows", inserted.Inserted).
			Int("duplicates", inserted.Duplicates).
			Msg("prices stored")
	}

	rec.RowsAdded = stats.Inserted
	rec.DuplicatesSkipped = stats.Duplicates
	rec.CompletedAt = time.Now().UTC()
	rec.Status = runStatus(rec.TickersSucceeded, rec.TickersFailed)
	rec.ErrorMessage = strings.Join(failures, "; ")
	if err := store.InsertRunRecord(ctx, rec); err != nil {
		a.Logger.Error().Err(err).Msg("record price run failed")
	}

	fmt.Fprintf(os.Stdout, "prices: %d tickers ok, %d failed, %d rows added, %d duplicates skipped\n",
		rec.TickersSucceeded, rec.TickersFailed, rec.RowsAdded, rec.DuplicatesSkipped)
	if rec.Status == runStatusFailed {
		return errors.New("price collection failed for every ticker")
	}
	return nil
}

func (a *App) collectNews(ctx context.Context, store *storage.Store, tickers []string, from, to time.Time) error {
	source := a.newNewsSource()
	rec := storage.RunRecord{
		RunType:          runTypeNews,
		TickersAttempted: len(tickers),
		StartedAt:        time.Now().UTC(),
	}
	var stats storage.InsertStats
	var failures []string

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return err
		}
		articles, err := source.CompanyNews(ctx, ticker, from, to)
		if err != nil {
			rec.TickersFailed++
			failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
			a.Logger.Error().Err(err).Str("ticker", ticker).Msg("news fetch failed")
			continue
		}
		relevant := fetcher.FilterRelevant(articles, ticker, a.Config.CompanyName(ticker))
		inserted, err := store.InsertArticles(ctx, relevant)
		if err != nil {
			rec.TickersFailed++
			failures = append(failures, fmt.Sprintf("%s: %v", ticker, err))
			a.Logger.Error().Err(err).Str("ticker", ticker).Msg("news insert failed")
			continue
		}
		rec.TickersSucceeded++
		stats.Add(inserted)
		a.Logger.Info().Str("ticker", ticker).
			Int("fetched", len(articles)).
			Int("relevant", len(relevant)).
			Int("rows", inserted.Inserted).
			Int("duplicates", inserted.Duplicates).
			Msg("news stored")
	}

	rec.RowsAdded = stats.Inserted
	rec.DuplicatesSkipped = stats.Duplicates
	rec.CompletedAt = time.Now().UTC()
	rec.Status = runStatus(rec.TickersSucceeded, rec.TickersFailed)
	rec.ErrorMessage = strings.Join(failures, "; ")
	if err := store.InsertRunRecord(ctx, rec); err != nil {
		a.Logger.Error().Err(err).Msg("record news run failed")
	}

	fmt.Fprintf(os.Stdout, "news: %d tickers ok, %d failed, %d articles added, %d duplicates skipped\n",
		rec.TickersSucceeded, rec.TickersFailed, rec.RowsAdded, rec.DuplicatesSkipped)
	if rec.Status == runStatusFailed {
		return errors.New("news collection failed for every ticker")
	}
	return nil
}

func runStatus(succeeded, failed int) string {
	switch {
	case failed == 0:
		return runStatusCompleted
	case succeeded == 0:
		return runStatusFailed
	default:
		return runStatusCompletedWithErrors
	}
}
