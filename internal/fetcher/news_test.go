package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"updown-dataset/internal/storage"
)

func TestNewsClientMissingAPIKey(t *testing.T) {
	c := NewNewsClient(NewsOptions{}, noopLogger())
	if _, err := c.CompanyNews(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now()); err == nil {
		t.Fatal("expected error without an api key")
	}
}

func TestNewsClientCompanyNews(t *testing.T) {
	published := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company-news" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" || q.Get("token") != "secret" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"category": "company", "datetime": published.Unix(),
				"headline": "Apple announces results", "id": 1,
				"related": "AAPL", "source": "Newswire",
				"summary": "Quarterly results.", "url": "https://example.com/a",
			},
			{
				"category": "company", "datetime": published.Unix(),
				"headline": "", "id": 2, "related": "AAPL",
				"source": "Newswire", "summary": "", "url": "https://example.com/b",
			},
			{
				"category": "company", "datetime": published.Unix(),
				"headline": "No link", "id": 3, "related": "AAPL",
				"source": "Newswire", "summary": "", "url": "",
			},
		})
	}))
	defer srv.Close()

	c := NewNewsClient(NewsOptions{
		BaseURL:        srv.URL,
		APIKey:         "secret",
		Timeout:        time.Second,
		CallsPerMinute: 6000,
	}, noopLogger())

	articles, err := c.CompanyNews(context.Background(), "aapl",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("company news: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("items without url or headline must be dropped, got %d articles", len(articles))
	}
	got := articles[0]
	if got.Ticker != "AAPL" || got.URL != "https://example.com/a" {
		t.Fatalf("article fields wrong: %+v", got)
	}
	if !got.PublishedAt.Equal(published) {
		t.Fatalf("published at = %s, want %s", got.PublishedAt, published)
	}
}

func TestNewsClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewNewsClient(NewsOptions{
		BaseURL:        srv.URL,
		APIKey:         "secret",
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		CallsPerMinute: 6000,
	}, noopLogger())

	if _, err := c.CompanyNews(context.Background(), "AAPL", time.Now().AddDate(0, 0, -1), time.Now()); err != nil {
		t.Fatalf("expected success after 429 retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestFilterRelevant(t *testing.T) {
	articles := []storage.Article{
		{Headline: "AAPL shares climb after earnings"},
		{Headline: "Apple ships new laptop"},
		{Headline: "Broad market selloff continues"},
	}
	kept := FilterRelevant(articles, "AAPL", "Apple")
	if len(kept) != 2 {
		t.Fatalf("expected 2 relevant articles, got %d", len(kept))
	}
	for _, article := range kept {
		if article.Headline == "Broad market selloff continues" {
			t.Fatal("irrelevant headline survived the filter")
		}
	}
}

func TestFilterRelevantFallsBackWhenTooStrict(t *testing.T) {
	articles := make([]storage.Article, 20)
	for i := range articles {
		articles[i] = storage.Article{Headline: "Sector roundup"}
	}
	articles[0].Headline = "AAPL mentioned once"

	kept := FilterRelevant(articles, "AAPL", "Apple")
	if len(kept) != len(articles) {
		t.Fatalf("under 10%% matches should keep everything, got %d of %d", len(kept), len(articles))
	}
}

func TestFilterRelevantEmptyInput(t *testing.T) {
	if kept := FilterRelevant(nil, "AAPL", "Apple"); len(kept) != 0 {
		t.Fatalf("expected empty result, got %d", len(kept))
	}
}
