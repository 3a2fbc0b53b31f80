package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"updown-dataset/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig         `mapstructure:"app"`
	Logging   logging.Config    `mapstructure:"logging"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Tickers   []string          `mapstructure:"tickers"`
	Companies map[string]string `mapstructure:"companies"`
	Pipeline  PipelineConfig    `mapstructure:"pipeline"`
	Prices    PriceSourceConfig `mapstructure:"prices"`
	News      NewsSourceConfig  `mapstructure:"news"`
	Output    OutputConfig      `mapstructure:"output"`
	Export    ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// PipelineConfig tunes the dataset construction stages.
type PipelineConfig struct {
	// Timezone is the reference zone for the news cutoff rule.
	Timezone       string  `mapstructure:"timezone"`
	CutoffHour     int     `mapstructure:"cutoff_hour"`
	SequenceLength int     `mapstructure:"sequence_length"`
	TrainRatio     float64 `mapstructure:"train_ratio"`
	ValRatio       float64 `mapstructure:"val_ratio"`
	Workers        int     `mapstructure:"workers"`
}

// PriceSourceConfig covers the end-of-day price API.
type PriceSourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Exchange       string        `mapstructure:"exchange"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	HistoryDays    int           `mapstructure:"history_days"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// NewsSourceConfig covers the company-news API.
type NewsSourceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LookbackDays   int           `mapstructure:"lookback_days"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	CallsPerMinute int           `mapstructure:"calls_per_minute"`
	// ArchiveEnabled merges headlines from the read-only archive_articles
	// table alongside the collected news table.
	ArchiveEnabled bool `mapstructure:"archive_enabled"`
}

// OutputConfig sets artifact destinations.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UPDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "updown")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("tickers", defaultTickers)
	v.SetDefault("companies", defaultCompanies)

	v.SetDefault("pipeline.timezone", "America/New_York")
	v.SetDefault("pipeline.cutoff_hour", 16)
	v.SetDefault("pipeline.sequence_length", 60)
	v.SetDefault("pipeline.train_ratio", 0.70)
	v.SetDefault("pipeline.val_ratio", 0.15)
	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("prices.base_url", "https://eodhd.com/api")
	v.SetDefault("prices.exchange", "US")
	v.SetDefault("prices.request_timeout", "15s")
	v.SetDefault("prices.history_days", 730)
	v.SetDefault("prices.max_retries", 3)
	v.SetDefault("prices.retry_base_delay", "2s")

	v.SetDefault("news.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("news.request_timeout", "10s")
	v.SetDefault("news.lookback_days", 21)
	v.SetDefault("news.max_retries", 3)
	v.SetDefault("news.retry_base_delay", "2s")
	v.SetDefault("news.calls_per_minute", 58)
	v.SetDefault("news.archive_enabled", false)

	v.SetDefault("output.dir", "data/processed")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("tickers must not be empty")
	}
	if c.Pipeline.Timezone == "" {
		return fmt.Errorf("pipeline.timezone must not be empty")
	}
	if c.Pipeline.CutoffHour < 0 || c.Pipeline.CutoffHour > 23 {
		return fmt.Errorf("pipeline.cutoff_hour must be between 0 and 23")
	}
	if c.Pipeline.SequenceLength < 2 {
		return fmt.Errorf("pipeline.sequence_length must be at least 2")
	}
	if c.Pipeline.TrainRatio <= 0 || c.Pipeline.TrainRatio >= 1 {
		return fmt.Errorf("pipeline.train_ratio must be between 0 and 1 exclusive")
	}
	if c.Pipeline.ValRatio < 0 || c.Pipeline.ValRatio >= 1 {
		return fmt.Errorf("pipeline.val_ratio must be between 0 and 1")
	}
	if c.Pipeline.TrainRatio+c.Pipeline.ValRatio >= 1 {
		return fmt.Errorf("pipeline.train_ratio plus pipeline.val_ratio must leave room for a test split")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be greater than zero")
	}
	if c.Prices.HistoryDays <= 0 {
		return fmt.Errorf("prices.history_days must be greater than zero")
	}
	if c.News.LookbackDays <= 0 {
		return fmt.Errorf("news.lookback_days must be greater than zero")
	}
	if c.News.CallsPerMinute <= 0 {
		return fmt.Errorf("news.calls_per_minute must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolveTickers returns the CLI override when provided, config otherwise.
// Symbols are upper-cased so lookups match stored rows.
func (c *Config) ResolveTickers(override []string) []string {
	source := c.Tickers
	if len(override) > 0 {
		source = override
	}
	out := make([]string, 0, len(source))
	for _, t := range source {
		if symbol := strings.ToUpper(strings.TrimSpace(t)); symbol != "" {
			out = append(out, symbol)
		}
	}
	return out
}

// CompanyName returns the display name registered for a ticker, or "".
func (c *Config) CompanyName(ticker string) string {
	return c.Companies[ticker]
}

var defaultTickers = []string{
	"AAPL", "NVDA", "WMT", "LLY", "JPM",
	"XOM", "MCD", "TSLA", "DAL", "MAR",
	"GS", "NFLX", "META", "ORCL", "PLTR",
}

var defaultCompanies = map[string]string{
	"AAPL": "Apple",
	"NVDA": "Nvidia",
	"WMT":  "Walmart",
	"LLY":  "Eli Lilly",
	"JPM":  "JPMorgan",
	"XOM":  "Exxon",
	"MCD":  "McDonald's",
	"TSLA": "Tesla",
	"DAL":  "Delta",
	"MAR":  "Marriott",
	"GS":   "Goldman Sachs",
	"NFLX": "Netflix",
	"META": "Meta",
	"ORCL": "Oracle",
	"PLTR": "Palantir",
}
