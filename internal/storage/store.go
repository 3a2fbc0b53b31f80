package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"updown-dataset/internal/config"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// PriceStore defines operations for price bar persistence.
type PriceStore interface {
	InsertPriceBars(ctx context.Context, bars []PriceBar) (InsertStats, error)
	ListPriceBars(ctx context.Context, ticker string) ([]PriceBar, error)
	ListCloses(ctx context.Context, ticker string) ([]ClosePoint, error)
	ListTickers(ctx context.Context) ([]string, error)
	ListTradingDates(ctx context.Context) ([]time.Time, error)
	CountPricesOnDates(ctx context.Context, dates []time.Time) (int64, error)
}

// LabelStore defines operations for label persistence.
type LabelStore interface {
	InsertLabels(ctx context.Context, labels []Label) (InsertStats, error)
	ListLabels(ctx context.Context, ticker string) ([]Label, error)
	ListAllLabels(ctx context.Context) ([]Label, error)
	CountLabelsOnDates(ctx context.Context, dates []time.Time) (int64, error)
}

// NewsStore defines operations for news persistence.
type NewsStore interface {
	InsertArticles(ctx context.Context, articles []Article) (InsertStats, error)
	ListHeadlines(ctx context.Context) ([]Headline, error)
	ListArchiveHeadlines(ctx context.Context) ([]ArchiveHeadline, error)
	HasArchiveTable(ctx context.Context) (bool, error)
	CountNewsOnDates(ctx context.Context, zone string, dates []time.Time) (int64, error)
}

// RunStore records collection run outcomes.
type RunStore interface {
	InsertRunRecord(ctx context.Context, rec RunRecord) error
}

// Store aggregates access to prices, news, labels, and the run log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

var (
	_ PriceStore = (*Store)(nil)
	_ LabelStore = (*Store)(nil)
	_ NewsStore  = (*Store)(nil)
	_ RunStore   = (*Store)(nil)
)
