package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	createMigrationsTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	migrationAppliedSQL = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1);`

	recordMigrationSQL = `INSERT INTO schema_migrations (version) VALUES ($1);`
)

// Migrate applies every pending .sql file from dir in lexical order. Each
// file runs inside its own transaction together with its bookkeeping row.
// It returns the versions applied by this call.
func (s *Store) Migrate(ctx context.Context, dir string) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	if _, execErr := pool.Exec(ctx, createMigrationsTableSQL); execErr != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", execErr)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		return nil, fmt.Errorf("read migrations dir: %w", readErr)
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		versions = append(versions, entry.Name())
	}
	sort.Strings(versions)

	applied := make([]string, 0)
	for _, version := range versions {
		var done bool
		if scanErr := pool.QueryRow(ctx, migrationAppliedSQL, version).Scan(&done); scanErr != nil {
			return applied, fmt.Errorf("check migration %s: %w", version, scanErr)
		}
		if done {
			continue
		}

		payload, readFileErr := os.ReadFile(filepath.Join(dir, version))
		if readFileErr != nil {
			return applied, fmt.Errorf("read migration %s: %w", version, readFileErr)
		}

		tx, txErr := pool.Begin(ctx)
		if txErr != nil {
			return applied, fmt.Errorf("begin migration %s: %w", version, txErr)
		}
		if _, execErr := tx.Exec(ctx, string(payload)); execErr != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("apply migration %s: %w", version, execErr)
		}
		if _, execErr := tx.Exec(ctx, recordMigrationSQL, version); execErr != nil {
			_ = tx.Rollback(ctx)
			return applied, fmt.Errorf("record migration %s: %w", version, execErr)
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			return applied, fmt.Errorf("commit migration %s: %w", version, commitErr)
		}
		applied = append(applied, version)
	}

	return applied, nil
}
