package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"updown-dataset/internal/config"
	"updown-dataset/internal/dataset"
	"updown-dataset/internal/fetcher"
	"updown-dataset/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newPriceSource() fetcher.PriceSource {
	return fetcher.NewPriceClient(fetcher.PriceOptions{
		BaseURL:        a.Config.Prices.BaseURL,
		APIKey:         a.Config.Prices.APIKey,
		Exchange:       a.Config.Prices.Exchange,
		Timeout:        a.Config.Prices.RequestTimeout,
		MaxRetries:     a.Config.Prices.MaxRetries,
		RetryBaseDelay: a.Config.Prices.RetryBaseDelay,
	}, a.Logger)
}

func (a *App) newNewsSource() fetcher.NewsSource {
	return fetcher.NewNewsClient(fetcher.NewsOptions{
		BaseURL:        a.Config.News.BaseURL,
		APIKey:         a.Config.News.APIKey,
		Timeout:        a.Config.News.RequestTimeout,
		MaxRetries:     a.Config.News.MaxRetries,
		RetryBaseDelay: a.Config.News.RetryBaseDelay,
		CallsPerMinute: a.Config.News.CallsPerMinute,
	}, a.Logger)
}

func (a *App) newCutoff() (*dataset.Cutoff, error) {
	return dataset.NewCutoff(a.Config.Pipeline.Timezone, a.Config.Pipeline.CutoffHour)
}

// CollectOptions configure a data collection run.
type CollectOptions struct {
	Tickers    []string
	From       *time.Time
	To         *time.Time
	Days       int
	PricesOnly bool
	NewsOnly   bool
}

// LabelOptions configure label generation.
type LabelOptions struct {
	Tickers []string
}

// FeatureOptions configure sequence dataset generation.
type FeatureOptions struct {
	Tickers        []string
	SequenceLength int
	OutDir         string
}

// NewsSetOptions configure the news text dataset.
type NewsSetOptions struct {
	Join    string
	OutPath string
}

// SplitOptions configure the chronological split manifest.
type SplitOptions struct {
	TrainRatio float64
	ValRatio   float64
	OutPath    string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Ticker string
	Limit  int
}

// ExportOptions configure indicator export for one ticker.
type ExportOptions struct {
	Ticker    string
	CSVPath   string
	PNGPath   string
	From      *time.Time
	To        *time.Time
	MaxPoints int
}
