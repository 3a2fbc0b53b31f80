package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"updown-dataset/internal/storage"
)

// PriceOptions parameterise the EOD history client.
type PriceOptions struct {
	BaseURL        string
	APIKey         string
	Exchange       string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// PriceClient fetches daily OHLCV bars from an EODHD-compatible API.
type PriceClient struct {
	opts    PriceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewPriceClient constructs a price history client.
func NewPriceClient(opts PriceOptions, logger zerolog.Logger) *PriceClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://eodhd.com/api"
	}
	if opts.Exchange == "" {
		opts.Exchange = "US"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}

	return &PriceClient{
		opts:    opts,
		logger:  logger.With().Str("component", "price_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// DailyBars retrieves the daily bars for ticker in [from, to]. Bare
// symbols get the configured exchange suffix; symbols that already carry
// one pass through untouched.
func (c *PriceClient) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]storage.PriceBar, error) {
	if c.opts.APIKey == "" {
		return nil, errors.New("price api key required")
	}

	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, errors.New("ticker required")
	}
	qualified := symbol
	if !strings.Contains(qualified, ".") {
		qualified = symbol + "." + c.opts.Exchange
	}

	query := url.Values{}
	query.Set("from", from.Format(storage.DayFormat))
	query.Set("to", to.Format(storage.DayFormat))
	query.Set("period", "d")
	query.Set("fmt", "json")
	query.Set("api_token", c.opts.APIKey)

	var rows []eodBar
	endpoint := c.baseURL + "/eod/" + url.PathEscape(qualified)
	err := withRetry(ctx, c.logger, c.opts.MaxRetries, c.opts.RetryBaseDelay, func() error {
		rows = rows[:0]
		return getJSON(ctx, c.client, endpoint, query, "eod", &rows)
	})
	if err != nil {
		return nil, err
	}

	bars := make([]storage.PriceBar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(storage.DayFormat, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %q for %s: %w", row.Date, symbol, err)
		}
		bars = append(bars, storage.PriceBar{
			Ticker:        symbol,
			Date:          storage.Day(date),
			Open:          row.Open,
			High:          row.High,
			Low:           row.Low,
			Close:         row.Close,
			Volume:        row.Volume,
			AdjustedClose: row.AdjustedClose,
		})
	}

	c.logger.Debug().Str("ticker", symbol).Int("bars", len(bars)).Msg("daily bars fetched")
	return bars, nil
}

type eodBar struct {
	Date          string   `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	AdjustedClose *float64 `json:"adjusted_close"`
	Volume        int64    `json:"volume"`
}

var _ PriceSource = (*PriceClient)(nil)
