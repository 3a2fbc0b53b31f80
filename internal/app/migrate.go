package app

import (
	"context"
	"fmt"
	"os"
)

// Migrate applies pending SQL migrations from the configured directory.
func (a *App) Migrate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	dir := a.Config.Database.MigrationsPath
	applied, err := store.Migrate(ctx, dir)
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		fmt.Fprintln(os.Stdout, "migrations up to date")
		return nil
	}
	for _, version := range applied {
		fmt.Fprintf(os.Stdout, "applied %s\n", version)
	}
	a.Logger.Info().Int("applied", len(applied)).Str("dir", dir).Msg("migrations applied")
	return nil
}
