package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"updown-dataset/internal/storage"
)

const (
	// extremeMoveThreshold flags day-over-day close changes above 20%.
	extremeMoveThreshold = 0.20
	// futureNewsSkew tolerates this much clock drift before an article
	// counts as published in the future.
	futureNewsSkew = 10 * time.Minute
)

// Validate runs the stored-data quality checks and prints a report. It
// returns an error when any check finds a problem, so scripted pipelines
// can gate on the exit code.
func (a *App) Validate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	prices, err := store.CheckPriceQuality(ctx, extremeMoveThreshold)
	if err != nil {
		return err
	}
	news, err := store.CheckNewsQuality(ctx, futureNewsSkew)
	if err != nil {
		return err
	}
	stored, err := store.ListTickers(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Check\tResult")
	fmt.Fprintf(writer, "prices with close <= 0\t%d\n", prices.NonPositiveClose)
	fmt.Fprintf(writer, "prices with high < low\t%d\n", prices.InvertedRanges)
	fmt.Fprintf(writer, "zero-volume days\t%d\n", prices.ZeroVolumeDays)
	fmt.Fprintf(writer, "moves beyond %.0f%%\t%d\n", extremeMoveThreshold*100, len(prices.ExtremeMoves))
	fmt.Fprintf(writer, "news with blank url or headline\t%d\n", news.BlankFields)
	fmt.Fprintf(writer, "news published in the future\t%d\n", news.FutureArticles)
	writer.Flush()

	if len(prices.ExtremeMoves) > 0 {
		fmt.Fprintln(os.Stdout)
		detail := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(detail, "Ticker\tDate\tPrev Close\tClose\tChange%")
		for _, move := range prices.ExtremeMoves {
			fmt.Fprintf(detail, "%s\t%s\t%.2f\t%.2f\t%+.2f\n",
				move.Ticker, move.Date.Format(storage.DayFormat),
				move.PrevClose, move.Close, move.ChangePct)
		}
		detail.Flush()
	}

	articles := make(map[string]int64, len(news.PerTicker))
	for _, t := range news.PerTicker {
		articles[t.Ticker] = t.Articles
	}
	fmt.Fprintln(os.Stdout)
	coverage := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(coverage, "Ticker\tPrice Rows\tFirst\tLast\tArticles")
	for _, c := range prices.Coverage {
		fmt.Fprintf(coverage, "%s\t%d\t%s\t%s\t%d\n",
			c.Ticker, c.Rows,
			c.FirstDate.Format(storage.DayFormat), c.LastDate.Format(storage.DayFormat),
			articles[c.Ticker])
	}
	coverage.Flush()

	have := make(map[string]bool, len(stored))
	for _, t := range stored {
		have[t] = true
	}
	var missing []string
	for _, t := range a.Config.Tickers {
		if symbol := strings.ToUpper(strings.TrimSpace(t)); !have[symbol] {
			missing = append(missing, symbol)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(os.Stdout, "configured tickers with no prices: %s\n", strings.Join(missing, ", "))
	}

	if !prices.Clean() || !news.Clean() {
		return errors.New("validation found data quality issues")
	}
	fmt.Fprintln(os.Stdout, "all checks passed")
	return nil
}
