package dataset

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"updown-dataset/internal/storage"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func day(value string) time.Time {
	t, err := time.Parse(storage.DayFormat, value)
	if err != nil {
		panic(err)
	}
	return storage.Day(t)
}

type fakePriceStore struct {
	closes     map[string][]storage.ClosePoint
	failTicker string
	err        error
}

func (f *fakePriceStore) InsertPriceBars(ctx context.Context, bars []storage.PriceBar) (storage.InsertStats, error) {
	return storage.InsertStats{}, nil
}

func (f *fakePriceStore) ListPriceBars(ctx context.Context, ticker string) ([]storage.PriceBar, error) {
	return nil, nil
}

func (f *fakePriceStore) ListCloses(ctx context.Context, ticker string) ([]storage.ClosePoint, error) {
	if f.err != nil && (f.failTicker == "" || f.failTicker == ticker) {
		return nil, f.err
	}
	return f.closes[ticker], nil
}

func (f *fakePriceStore) ListTickers(ctx context.Context) ([]string, error) {
	tickers := make([]string, 0, len(f.closes))
	for ticker := range f.closes {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (f *fakePriceStore) ListTradingDates(ctx context.Context) ([]time.Time, error) {
	return nil, nil
}

func (f *fakePriceStore) CountPricesOnDates(ctx context.Context, dates []time.Time) (int64, error) {
	return 0, nil
}

type fakeLabelStore struct {
	inserted map[string]storage.Label
	order    []storage.Label
	err      error
}

func newFakeLabelStore() *fakeLabelStore {
	return &fakeLabelStore{inserted: make(map[string]storage.Label)}
}

func (f *fakeLabelStore) InsertLabels(ctx context.Context, labels []storage.Label) (storage.InsertStats, error) {
	if f.err != nil {
		return storage.InsertStats{}, f.err
	}
	var stats storage.InsertStats
	for _, label := range labels {
		key := label.Ticker + "|" + label.Date.Format(storage.DayFormat)
		if _, ok := f.inserted[key]; ok {
			stats.Duplicates++
			continue
		}
		f.inserted[key] = label
		f.order = append(f.order, label)
		stats.Inserted++
	}
	return stats, nil
}

func (f *fakeLabelStore) ListLabels(ctx context.Context, ticker string) ([]storage.Label, error) {
	var out []storage.Label
	for _, label := range f.order {
		if label.Ticker == ticker {
			out = append(out, label)
		}
	}
	return out, nil
}

func (f *fakeLabelStore) ListAllLabels(ctx context.Context) ([]storage.Label, error) {
	return append([]storage.Label(nil), f.order...), nil
}

func (f *fakeLabelStore) CountLabelsOnDates(ctx context.Context, dates []time.Time) (int64, error) {
	return 0, nil
}

type fakeNewsStore struct {
	headlines []storage.Headline
	archive   []storage.ArchiveHeadline
	hasTable  bool
}

func (f *fakeNewsStore) InsertArticles(ctx context.Context, articles []storage.Article) (storage.InsertStats, error) {
	return storage.InsertStats{}, nil
}

func (f *fakeNewsStore) ListHeadlines(ctx context.Context) ([]storage.Headline, error) {
	return f.headlines, nil
}

func (f *fakeNewsStore) ListArchiveHeadlines(ctx context.Context) ([]storage.ArchiveHeadline, error) {
	return f.archive, nil
}

func (f *fakeNewsStore) HasArchiveTable(ctx context.Context) (bool, error) {
	return f.hasTable, nil
}

func (f *fakeNewsStore) CountNewsOnDates(ctx context.Context, zone string, dates []time.Time) (int64, error) {
	return 0, nil
}

var (
	_ storage.PriceStore = (*fakePriceStore)(nil)
	_ storage.LabelStore = (*fakeLabelStore)(nil)
	_ storage.NewsStore  = (*fakeNewsStore)(nil)
)
