package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"updown-dataset/internal/storage"
)

// Show prints recent price bars with their labels for one ticker.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	ticker := strings.ToUpper(strings.TrimSpace(opts.Ticker))
	if ticker == "" {
		return errors.New("a ticker is required")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	bars, err := store.ListRecentBarsWithLabels(ctx, ticker, limit)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		fmt.Fprintf(os.Stdout, "no price rows found for %s\n", ticker)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tOpen\tHigh\tLow\tClose\tVolume\tLabel\tReturn%")

	for _, bar := range bars {
		label := "-"
		ret := ""
		if bar.HasLabel {
			label = "down"
			if bar.Binary == 1 {
				label = "up"
			}
			ret = fmt.Sprintf("%+.4f", bar.Return)
		}
		fmt.Fprintf(
			writer,
			"%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%s\t%s\n",
			bar.Date.Format(storage.DayFormat),
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			label,
			ret,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
