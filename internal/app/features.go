package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"updown-dataset/internal/features"
)

// Features computes indicators, windows them into normalized sequences and
// writes the binary training artifacts.
func (a *App) Features(ctx context.Context, opts FeatureOptions) error {
	length := opts.SequenceLength
	if length <= 0 {
		length = a.Config.Pipeline.SequenceLength
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = a.Config.Output.Dir
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	tickers := a.Config.ResolveTickers(opts.Tickers)
	builder := features.NewBuilder(store, store, length, a.Config.Pipeline.Workers, a.Logger)
	samples, summary, err := builder.Run(ctx, tickers)
	if err != nil {
		return err
	}

	manifest, err := features.WriteDatasetDir(outDir, samples, length)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Ticker\tPrices\tUsable\tSequences\tNoLabel\tError")
	for _, count := range summary.PerTicker {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%d\t%s\n",
			count.Ticker, count.PriceRows, count.UsableRows, count.Sequences,
			count.MissingLabelDays, sanitizeInline(count.Err))
	}
	writer.Flush()
	fmt.Fprintf(os.Stdout, "features: %d sequences (%d up, %d down) -> %s\n",
		manifest.Samples, summary.UpLabels, manifest.Samples-summary.UpLabels, outDir)

	if summary.TickersFailed > 0 && summary.TickersFailed == len(tickers) {
		return errors.New("feature generation failed for every ticker")
	}
	return nil
}
