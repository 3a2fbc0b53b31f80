package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"updown-dataset/internal/dataset"
	"updown-dataset/internal/storage"
)

// NewsSet builds the news text dataset and writes it as CSV.
func (a *App) NewsSet(ctx context.Context, opts NewsSetOptions) error {
	mode, err := dataset.ParseJoinMode(opts.Join)
	if err != nil {
		return err
	}
	outPath := opts.OutPath
	if outPath == "" {
		outPath = filepath.Join(a.Config.Output.Dir, "text_dataset.csv")
	}

	cutoff, err := a.newCutoff()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	builder := dataset.NewNewsBuilder(store, store, cutoff, a.Config.News.ArchiveEnabled, a.Logger)
	rows, summary, err := builder.Build(ctx, mode)
	if err != nil {
		return err
	}

	if err := writeNewsCSV(outPath, rows); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "news dataset: %d rows (%d labeled, %d unlabeled) from %d headlines -> %s\n",
		summary.Rows, summary.Labeled, summary.Unlabeled,
		summary.SourceHeadlines+summary.ArchiveHeadlines, outPath)
	if summary.Unresolvable > 0 {
		fmt.Fprintf(os.Stdout, "dropped %d headlines with unparseable timestamps\n", summary.Unresolvable)
	}
	return nil
}

func writeNewsCSV(path string, rows []dataset.NewsRow) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"ticker", "prediction_date", "num_articles", "headlines_text",
		"headlines_json", "label_binary", "label_return", "close_t", "close_t_plus_1",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Ticker,
			row.PredictionDate.Format(storage.DayFormat),
			strconv.Itoa(row.NumArticles),
			row.HeadlinesText,
			row.HeadlinesJSON,
			"", "", "", "",
		}
		if row.HasLabel {
			record[5] = strconv.Itoa(row.LabelBinary)
			record[6] = strconv.FormatFloat(row.LabelReturn, 'f', 4, 64)
			record[7] = strconv.FormatFloat(row.CloseT, 'f', -1, 64)
			record[8] = strconv.FormatFloat(row.CloseT1, 'f', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
