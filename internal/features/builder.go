package features

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"updown-dataset/internal/storage"
)

// TickerFeatureCount reports sequence generation for a single ticker.
type TickerFeatureCount struct {
	Ticker           string
	PriceRows        int
	UsableRows       int
	Sequences        int
	MissingLabelDays int
	Err              string
}

// BuildSummary aggregates sequence generation across the whole run.
type BuildSummary struct {
	PerTicker     []TickerFeatureCount
	Sequences     int
	UpLabels      int
	TickersFailed int
}

// Builder turns stored price history into windowed training samples.
type Builder struct {
	prices  storage.PriceStore
	labels  storage.LabelStore
	length  int
	workers int
	logger  zerolog.Logger
}

func NewBuilder(prices storage.PriceStore, labels storage.LabelStore, length, workers int, logger zerolog.Logger) *Builder {
	if workers < 1 {
		workers = 1
	}
	return &Builder{
		prices:  prices,
		labels:  labels,
		length:  length,
		workers: workers,
		logger:  logger.With().Str("component", "feature_builder").Logger(),
	}
}

// Run builds samples for every ticker, fanning the work across a bounded
// worker group. Per-ticker failures are recorded in the summary and do
// not abort the batch. Samples come back grouped in ticker input order,
// each ticker's windows ascending by date, so repeated runs over the same
// data produce identical artifacts.
func (b *Builder) Run(ctx context.Context, tickers []string) ([]Sample, BuildSummary, error) {
	type result struct {
		samples []Sample
		count   TickerFeatureCount
	}
	results := make([]result, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			samples, count := b.buildTicker(gctx, ticker)
			results[i] = result{samples: samples, count: count}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, BuildSummary{}, err
	}

	var samples []Sample
	summary := BuildSummary{PerTicker: make([]TickerFeatureCount, 0, len(tickers))}
	for _, res := range results {
		summary.PerTicker = append(summary.PerTicker, res.count)
		if res.count.Err != "" {
			summary.TickersFailed++
			b.logger.Error().
				Str("ticker", res.count.Ticker).
				Str("error", res.count.Err).
				Msg("feature build failed")
			continue
		}
		samples = append(samples, res.samples...)
		summary.Sequences += res.count.Sequences
		for _, sample := range res.samples {
			summary.UpLabels += sample.Label
		}
	}

	b.logger.Info().
		Int("tickers", len(tickers)).
		Int("sequences", summary.Sequences).
		Int("up_labels", summary.UpLabels).
		Int("failed", summary.TickersFailed).
		Msg("feature dataset built")
	return samples, summary, nil
}

func (b *Builder) buildTicker(ctx context.Context, ticker string) ([]Sample, TickerFeatureCount) {
	count := TickerFeatureCount{Ticker: ticker}

	bars, err := b.prices.ListPriceBars(ctx, ticker)
	if err != nil {
		count.Err = err.Error()
		return nil, count
	}
	count.PriceRows = len(bars)

	stored, err := b.labels.ListLabels(ctx, ticker)
	if err != nil {
		count.Err = err.Error()
		return nil, count
	}
	labelByDay := make(map[time.Time]int, len(stored))
	for _, label := range stored {
		labelByDay[storage.Day(label.Date)] = label.Binary
	}

	rows := Compute(bars)
	for _, row := range rows {
		if row.Complete() {
			count.UsableRows++
		}
	}

	samples, missing := BuildWindows(ticker, rows, labelByDay, b.length)
	count.Sequences = len(samples)
	count.MissingLabelDays = missing

	b.logger.Debug().
		Str("ticker", ticker).
		Int("price_rows", count.PriceRows).
		Int("usable_rows", count.UsableRows).
		Int("sequences", count.Sequences).
		Int("missing_labels", missing).
		Msg("ticker windows built")
	return samples, count
}
