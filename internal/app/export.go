package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"updown-dataset/internal/features"
	"updown-dataset/internal/storage"
)

// Export renders one ticker's price history with computed indicators as
// CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	ticker := strings.ToUpper(strings.TrimSpace(opts.Ticker))
	if ticker == "" {
		return errors.New("a ticker is required")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	bars, err := store.ListPriceBars(ctx, ticker)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		a.Logger.Info().Str("ticker", ticker).Msg("no price rows found for export")
		return nil
	}

	rows := clipRows(features.Compute(bars), opts.From, opts.To)
	if len(rows) == 0 {
		a.Logger.Info().Str("ticker", ticker).Msg("no rows in the export window")
		return nil
	}

	downsampled := downsampleRows(rows, opts.MaxPoints)
	a.Logger.Info().
		Str("ticker", ticker).
		Int("total", len(rows)).
		Int("exported", len(downsampled)).
		Msg("exporting indicator rows")

	if opts.CSVPath != "" {
		if err := writeIndicatorCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeIndicatorPNG(opts.PNGPath, ticker, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func clipRows(rows []features.Row, from, to *time.Time) []features.Row {
	clipped := make([]features.Row, 0, len(rows))
	for _, row := range rows {
		if from != nil && row.Date.Before(storage.Day(*from)) {
			continue
		}
		if to != nil && row.Date.After(storage.Day(*to)) {
			continue
		}
		clipped = append(clipped, row)
	}
	return clipped
}

func downsampleRows(rows []features.Row, max int) []features.Row {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]features.Row, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeIndicatorCSV(path string, rows []features.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"date"}, features.FeatureColumns[:]...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, features.NumFeatures+1)
		record = append(record, row.Date.Format(storage.DayFormat))
		for _, v := range row.Vector() {
			record = append(record, formatFeature(v))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// formatFeature leaves warm-up NaNs as empty cells, mirroring how the
// stored values are treated everywhere else.
func formatFeature(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeIndicatorPNG(path, ticker string, rows []features.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	complete := make([]features.Row, 0, len(rows))
	for _, row := range rows {
		if row.Complete() {
			complete = append(complete, row)
		}
	}
	if len(complete) < 2 {
		return fmt.Errorf("need at least 2 rows past indicator warm-up, have %d", len(complete))
	}

	x := make([]time.Time, len(complete))
	closes := make([]float64, len(complete))
	upper := make([]float64, len(complete))
	lower := make([]float64, len(complete))
	rsi := make([]float64, len(complete))

	for i, row := range complete {
		x[i] = row.Date
		closes[i] = row.Close
		upper[i] = row.BBUpper
		lower[i] = row.BBLower
		rsi[i] = row.RSI
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  ticker,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price",
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "RSI",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: x,
				YValues: closes,
			},
			chart.TimeSeries{
				Name:    "BB Upper",
				XValues: x,
				YValues: upper,
			},
			chart.TimeSeries{
				Name:    "BB Lower",
				XValues: x,
				YValues: lower,
			},
			chart.TimeSeries{
				Name:    "RSI 14",
				XValues: x,
				YValues: rsi,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
