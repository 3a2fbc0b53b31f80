package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestPriceClientMissingAPIKey(t *testing.T) {
	c := NewPriceClient(PriceOptions{}, noopLogger())
	if _, err := c.DailyBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now()); err == nil {
		t.Fatal("expected error without an api key")
	}
}

func TestPriceClientDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eod/AAPL.US" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("period") != "d" || q.Get("fmt") != "json" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("api_token") != "secret" {
			t.Errorf("api token not forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"date": "2025-01-06", "open": 100.0, "high": 102.5, "low": 99.0,
				"close": 101.0, "adjusted_close": 100.8, "volume": 1200000,
			},
			{
				"date": "2025-01-07", "open": 101.0, "high": 103.0, "low": 100.5,
				"close": 102.0, "adjusted_close": 101.9, "volume": 900000,
			},
		})
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{
		BaseURL: srv.URL,
		APIKey:  "secret",
		Timeout: time.Second,
	}, noopLogger())

	bars, err := c.DailyBars(context.Background(), "aapl",
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("daily bars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	first := bars[0]
	if first.Ticker != "AAPL" {
		t.Fatalf("ticker should be upper-cased without suffix, got %s", first.Ticker)
	}
	if first.Close != 101.0 || first.Volume != 1200000 {
		t.Fatalf("bar values wrong: %+v", first)
	}
	if first.AdjustedClose == nil || *first.AdjustedClose != 100.8 {
		t.Fatalf("adjusted close not carried: %+v", first.AdjustedClose)
	}
	if want := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC); !first.Date.Equal(want) {
		t.Fatalf("bar date = %s, want %s", first.Date, want)
	}
}

func TestPriceClientKeepsExplicitExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eod/SAP.XETRA" {
			t.Errorf("suffixed symbol should pass through, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{BaseURL: srv.URL, APIKey: "secret"}, noopLogger())
	if _, err := c.DailyBars(context.Background(), "SAP.XETRA", time.Now().AddDate(0, 0, -1), time.Now()); err != nil {
		t.Fatalf("daily bars: %v", err)
	}
}

func TestPriceClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"date":"2025-01-06","open":1,"high":1,"low":1,"close":1,"adjusted_close":1,"volume":10}]`))
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{
		BaseURL:        srv.URL,
		APIKey:         "secret",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}, noopLogger())

	bars, err := c.DailyBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -1), time.Now())
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestPriceClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{
		BaseURL:        srv.URL,
		APIKey:         "bad",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}, noopLogger())

	_, err := c.DailyBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -1), time.Now())
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if calls.Load() != 1 {
		t.Fatalf("403 must not be retried, saw %d attempts", calls.Load())
	}
}

func TestPriceClientBadDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"date":"06/01/2025","open":1,"high":1,"low":1,"close":1,"volume":10}]`))
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{BaseURL: srv.URL, APIKey: "secret"}, noopLogger())
	if _, err := c.DailyBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -1), time.Now()); err == nil {
		t.Fatal("expected error for malformed bar date")
	}
}
