package dataset

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"updown-dataset/internal/storage"
)

var oneHundred = decimal.NewFromInt(100)

// BuildLabels turns an ascending (date, close) series into direction
// labels, one per consecutive pair, keyed at the earlier date. Fewer than
// two points yields nothing.
func BuildLabels(ticker string, points []storage.ClosePoint) []storage.Label {
	if len(points) < 2 {
		return nil
	}
	labels := make([]storage.Label, 0, len(points)-1)
	for i := 0; i+1 < len(points); i++ {
		curr, next := points[i], points[i+1]
		binary := 0
		if next.Close > curr.Close {
			binary = 1
		}
		labels = append(labels, storage.Label{
			Ticker:  ticker,
			Date:    storage.Day(curr.Date),
			Binary:  binary,
			Return:  pctReturn(curr.Close, next.Close),
			CloseT:  curr.Close,
			CloseT1: next.Close,
		})
	}
	return labels
}

// pctReturn computes (c1-c0)/c0*100 rounded to four decimal places. A zero
// baseline close yields 0 rather than a division error.
func pctReturn(c0, c1 float64) float64 {
	if c0 == 0 {
		return 0
	}
	base := decimal.NewFromFloat(c0)
	return decimal.NewFromFloat(c1).Sub(base).Div(base).Mul(oneHundred).Round(4).InexactFloat64()
}

// TickerLabelCount reports label generation for a single ticker.
type TickerLabelCount struct {
	Ticker    string
	PriceRows int
	Created   int
	Skipped   int
	Err       string
}

// LabelSummary aggregates label generation across the whole run.
type LabelSummary struct {
	PerTicker     []TickerLabelCount
	Created       int
	Skipped       int
	TickersFailed int
}

// LabelBuilder derives labels from stored closes and persists them.
type LabelBuilder struct {
	prices storage.PriceStore
	labels storage.LabelStore
	logger zerolog.Logger
}

func NewLabelBuilder(prices storage.PriceStore, labels storage.LabelStore, logger zerolog.Logger) *LabelBuilder {
	return &LabelBuilder{
		prices: prices,
		labels: labels,
		logger: logger.With().Str("component", "label_builder").Logger(),
	}
}

// Run generates labels for every ticker. Tickers with fewer than two
// price rows produce zero labels and are not an error; other per-ticker
// failures are recorded and do not stop the batch. Reruns over the same
// prices insert nothing new and report everything as skipped.
func (b *LabelBuilder) Run(ctx context.Context, tickers []string) (LabelSummary, error) {
	summary := LabelSummary{PerTicker: make([]TickerLabelCount, 0, len(tickers))}
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		count := TickerLabelCount{Ticker: ticker}
		points, err := b.prices.ListCloses(ctx, ticker)
		if err != nil {
			count.Err = err.Error()
			summary.TickersFailed++
			summary.PerTicker = append(summary.PerTicker, count)
			b.logger.Error().Err(err).Str("ticker", ticker).Msg("load closes failed")
			continue
		}
		count.PriceRows = len(points)
		if len(points) < 2 {
			summary.PerTicker = append(summary.PerTicker, count)
			b.logger.Warn().Str("ticker", ticker).Int("price_rows", len(points)).
				Msg("not enough price history for labels")
			continue
		}
		stats, err := b.labels.InsertLabels(ctx, BuildLabels(ticker, points))
		if err != nil {
			count.Err = err.Error()
			summary.TickersFailed++
			summary.PerTicker = append(summary.PerTicker, count)
			b.logger.Error().Err(err).Str("ticker", ticker).Msg("insert labels failed")
			continue
		}
		count.Created = stats.Inserted
		count.Skipped = stats.Duplicates
		summary.Created += stats.Inserted
		summary.Skipped += stats.Duplicates
		summary.PerTicker = append(summary.PerTicker, count)
		b.logger.Info().Str("ticker", ticker).
			Int("created", stats.Inserted).
			Int("skipped", stats.Duplicates).
			Msg("labels generated")
	}
	return summary, nil
}
