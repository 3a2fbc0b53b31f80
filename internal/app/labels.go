package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"updown-dataset/internal/dataset"
)

// Labels derives direction labels from stored closes and persists them.
func (a *App) Labels(ctx context.Context, opts LabelOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	tickers := a.Config.ResolveTickers(opts.Tickers)
	builder := dataset.NewLabelBuilder(store, store, a.Logger)
	summary, err := builder.Run(ctx, tickers)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Ticker\tPrices\tCreated\tSkipped\tError")
	for _, count := range summary.PerTicker {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%s\n",
			count.Ticker, count.PriceRows, count.Created, count.Skipped, sanitizeInline(count.Err))
	}
	writer.Flush()
	fmt.Fprintf(os.Stdout, "labels: %d created, %d skipped, %d tickers failed\n",
		summary.Created, summary.Skipped, summary.TickersFailed)

	if summary.TickersFailed > 0 && summary.TickersFailed == len(tickers) {
		return errors.New("label generation failed for every ticker")
	}
	return nil
}
