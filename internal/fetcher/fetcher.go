package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"updown-dataset/internal/storage"
)

// PriceSource retrieves daily OHLCV history for one ticker.
type PriceSource interface {
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]storage.PriceBar, error)
}

// NewsSource retrieves company news headlines for one ticker.
type NewsSource interface {
	CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]storage.Article, error)
}

// APIError is a non-2xx response from an upstream data provider. The
// endpoint field names the API route, never the full URL, so credentials
// in query strings stay out of logs.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Endpoint, e.StatusCode)
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, query url.Values, label string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(payload))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return &APIError{StatusCode: resp.StatusCode, Endpoint: label, Message: msg}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", label, err)
	}
	return nil
}

// withRetry runs call up to attempts times, doubling the delay after each
// failure. Client errors other than 429 are returned immediately.
func withRetry(ctx context.Context, logger zerolog.Logger, attempts int, baseDelay time.Duration, call func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = call()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			return err
		}
		delay := baseDelay << (attempt - 1)
		logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("request failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
