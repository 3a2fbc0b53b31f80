package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"updown-dataset/internal/storage"
)

// NewsOptions parameterise the company news client.
type NewsOptions struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	CallsPerMinute int
}

// NewsClient fetches company news from a Finnhub-compatible API. A shared
// limiter keeps the request rate under the provider's per-minute quota no
// matter how many tickers a collection run covers.
type NewsClient struct {
	opts    NewsOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewNewsClient constructs a news client.
func NewNewsClient(opts NewsOptions, logger zerolog.Logger) *NewsClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}
	cpm := opts.CallsPerMinute
	if cpm <= 0 {
		cpm = 58
	}

	return &NewsClient{
		opts:    opts,
		logger:  logger.With().Str("component", "news_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(float64(cpm)/60.0), 1),
	}
}

// CompanyNews lists articles for one ticker in [from, to]. Items without
// a url or headline cannot be stored or deduplicated and are dropped.
func (c *NewsClient) CompanyNews(ctx context.Context, ticker string, from, to time.Time) ([]storage.Article, error) {
	if c.opts.APIKey == "" {
		return nil, errors.New("news api key required")
	}
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, errors.New("ticker required")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("from", from.Format(storage.DayFormat))
	query.Set("to", to.Format(storage.DayFormat))
	query.Set("token", c.opts.APIKey)

	var items []newsItem
	endpoint := c.baseURL + "/company-news"
	err := withRetry(ctx, c.logger, c.opts.MaxRetries, c.opts.RetryBaseDelay, func() error {
		items = items[:0]
		return getJSON(ctx, c.client, endpoint, query, "company-news", &items)
	})
	if err != nil {
		return nil, err
	}

	articles := make([]storage.Article, 0, len(items))
	skipped := 0
	for _, item := range items {
		if item.URL == "" || item.Headline == "" {
			skipped++
			continue
		}
		articles = append(articles, storage.Article{
			URL:         item.URL,
			Ticker:      symbol,
			Headline:    item.Headline,
			Source:      item.Source,
			PublishedAt: time.Unix(item.Datetime, 0).UTC(),
			Summary:     item.Summary,
		})
	}
	if skipped > 0 {
		c.logger.Debug().Str("ticker", symbol).Int("skipped", skipped).
			Msg("dropped articles missing url or headline")
	}
	return articles, nil
}

// FilterRelevant keeps articles whose headline mentions the ticker or the
// company name, case-insensitively. Providers return sector-wide noise
// under a symbol now and then; when fewer than a tenth of the articles
// match, the filter is assumed to be misfiring and everything is kept.
func FilterRelevant(articles []storage.Article, ticker, company string) []storage.Article {
	if len(articles) == 0 {
		return articles
	}
	tickerLower := strings.ToLower(strings.TrimSpace(ticker))
	companyLower := strings.ToLower(strings.TrimSpace(company))

	matched := make([]storage.Article, 0, len(articles))
	for _, article := range articles {
		headline := strings.ToLower(article.Headline)
		if tickerLower != "" && strings.Contains(headline, tickerLower) {
			matched = append(matched, article)
			continue
		}
		if companyLower != "" && strings.Contains(headline, companyLower) {
			matched = append(matched, article)
		}
	}
	if len(matched)*10 < len(articles) {
		return articles
	}
	return matched
}

type newsItem struct {
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

var _ NewsSource = (*NewsClient)(nil)
