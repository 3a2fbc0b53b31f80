package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"updown-dataset/internal/dataset"
	"updown-dataset/internal/storage"
)

// SplitInfo describes one chronological partition of trading dates.
type SplitInfo struct {
	Dates     []string `json:"dates"`
	DateRange string   `json:"date_range"`
	NumDays   int      `json:"num_days"`
	PriceRows int64    `json:"price_rows"`
	NewsRows  int64    `json:"news_rows"`
	LabelRows int64    `json:"label_rows"`
}

// SplitManifest is the persisted train/val/test assignment. Training jobs
// read it to filter samples by prediction date, so the same split holds
// across the price and news datasets.
type SplitManifest struct {
	CreatedAt  time.Time `json:"created_at"`
	TrainRatio float64   `json:"train_ratio"`
	ValRatio   float64   `json:"val_ratio"`
	TotalDays  int       `json:"total_days"`
	Train      SplitInfo `json:"train"`
	Val        SplitInfo `json:"val"`
	Test       SplitInfo `json:"test"`
}

// Split partitions all labeled trading dates chronologically and writes
// the assignment manifest.
func (a *App) Split(ctx context.Context, opts SplitOptions) error {
	trainRatio := opts.TrainRatio
	if trainRatio == 0 {
		trainRatio = a.Config.Pipeline.TrainRatio
	}
	valRatio := opts.ValRatio
	if valRatio == 0 {
		valRatio = a.Config.Pipeline.ValRatio
	}
	outPath := opts.OutPath
	if outPath == "" {
		outPath = filepath.Join(a.Config.Output.Dir, "split_info.json")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	dates, err := store.ListTradingDates(ctx)
	if err != nil {
		return err
	}
	assignment, err := dataset.Split(dates, trainRatio, valRatio)
	if err != nil {
		return err
	}

	manifest := SplitManifest{
		CreatedAt:  time.Now().UTC(),
		TrainRatio: trainRatio,
		ValRatio:   valRatio,
		TotalDays:  len(dates),
	}
	if manifest.Train, err = a.splitInfo(ctx, store, assignment.Train); err != nil {
		return err
	}
	if manifest.Val, err = a.splitInfo(ctx, store, assignment.Val); err != nil {
		return err
	}
	if manifest.Test, err = a.splitInfo(ctx, store, assignment.Test); err != nil {
		return err
	}

	if err := ensureDir(outPath); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode split manifest: %w", err)
	}
	if err := os.WriteFile(outPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write split manifest: %w", err)
	}

	fmt.Fprintf(os.Stdout, "split: %d trading days -> train %d, val %d, test %d -> %s\n",
		len(dates), manifest.Train.NumDays, manifest.Val.NumDays, manifest.Test.NumDays, outPath)
	fmt.Fprintf(os.Stdout, "  train %s\n  val   %s\n  test  %s\n",
		manifest.Train.DateRange, manifest.Val.DateRange, manifest.Test.DateRange)
	return nil
}

func (a *App) splitInfo(ctx context.Context, store *storage.Store, dates []time.Time) (SplitInfo, error) {
	info := SplitInfo{
		Dates:   make([]string, 0, len(dates)),
		NumDays: len(dates),
	}
	for _, date := range dates {
		info.Dates = append(info.Dates, date.Format(storage.DayFormat))
	}
	if len(dates) > 0 {
		info.DateRange = fmt.Sprintf("%s to %s",
			dates[0].Format(storage.DayFormat), dates[len(dates)-1].Format(storage.DayFormat))
	}

	var err error
	if info.PriceRows, err = store.CountPricesOnDates(ctx, dates); err != nil {
		return SplitInfo{}, err
	}
	if info.LabelRows, err = store.CountLabelsOnDates(ctx, dates); err != nil {
		return SplitInfo{}, err
	}
	if info.NewsRows, err = store.CountNewsOnDates(ctx, a.Config.Pipeline.Timezone, dates); err != nil {
		return SplitInfo{}, err
	}
	return info, nil
}
