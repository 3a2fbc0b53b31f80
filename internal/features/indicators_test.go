package features

import (
	"fmt"
	"math"
	"testing"
	"time"

	"updown-dataset/internal/storage"
)

func day(value string) time.Time {
	t, err := time.Parse(storage.DayFormat, value)
	if err != nil {
		panic(err)
	}
	return storage.Day(t)
}

// syntheticBars builds n ascending daily bars whose closes move up and
// down so that RSI has both gains and losses to work with.
func syntheticBars(n int) []storage.PriceBar {
	bars := make([]storage.PriceBar, n)
	close := 100.0
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%2 == 0 {
				close += 3
			} else {
				close -= 1
			}
		}
		bars[i] = storage.PriceBar{
			Ticker: "TEST",
			Date:   base.AddDate(0, 0, i),
			Open:   close - 0.5,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: int64(1000 + 10*i),
		}
	}
	return bars
}

func flatBars(n int, close float64, volume int64) []storage.PriceBar {
	bars := make([]storage.PriceBar, n)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = storage.PriceBar{
			Ticker: "FLAT",
			Date:   base.AddDate(0, 0, i),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: volume,
		}
	}
	return bars
}

func TestComputeEmptyInput(t *testing.T) {
	if rows := Compute(nil); rows != nil {
		t.Fatalf("expected no rows for empty input, got %d", len(rows))
	}
}

func TestComputeWarmupBoundaries(t *testing.T) {
	rows := Compute(syntheticBars(40))
	if len(rows) != 40 {
		t.Fatalf("expected one row per bar, got %d", len(rows))
	}

	cases := []struct {
		name       string
		firstValid int
		value      func(Row) float64
	}{
		{"rsi", 14, func(r Row) float64 { return r.RSI }},
		{"macd_line", 25, func(r Row) float64 { return r.MACDLine }},
		{"macd_signal", 33, func(r Row) float64 { return r.MACDSignal }},
		{"macd_histogram", 33, func(r Row) float64 { return r.MACDHistogram }},
		{"bb_middle", 19, func(r Row) float64 { return r.BBMiddle }},
		{"bb_upper", 19, func(r Row) float64 { return r.BBUpper }},
		{"bb_lower", 19, func(r Row) float64 { return r.BBLower }},
		{"bb_width", 19, func(r Row) float64 { return r.BBWidth }},
		{"bb_position", 19, func(r Row) float64 { return r.BBPosition }},
		{"volume_ma", 19, func(r Row) float64 { return r.VolumeMA }},
		{"volume_ratio", 19, func(r Row) float64 { return r.VolumeRatio }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < tc.firstValid; i++ {
				if !math.IsNaN(tc.value(rows[i])) {
					t.Fatalf("%s should be undefined at index %d", tc.name, i)
				}
			}
			for i := tc.firstValid; i < len(rows); i++ {
				if math.IsNaN(tc.value(rows[i])) {
					t.Fatalf("%s should be defined at index %d", tc.name, i)
				}
			}
		})
	}
}

func TestComputeRSIBounds(t *testing.T) {
	rows := Compute(syntheticBars(60))
	for i, row := range rows {
		if math.IsNaN(row.RSI) {
			continue
		}
		if row.RSI < 0 || row.RSI > 100 {
			t.Fatalf("RSI out of range at index %d: %v", i, row.RSI)
		}
	}
}

func TestComputeRSIPureDowntrend(t *testing.T) {
	// Without a single gain the average gain is zero, so RSI pins at 0
	// exactly once it is defined.
	bars := make([]storage.PriceBar, 20)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		close := 500.0 - float64(i)
		bars[i] = storage.PriceBar{
			Ticker: "DOWN",
			Date:   base.AddDate(0, 0, i),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: 1000,
		}
	}
	rows := Compute(bars)
	for i := 14; i < len(rows); i++ {
		if rows[i].RSI != 0 {
			t.Fatalf("expected RSI 0 at index %d, got %v", i, rows[i].RSI)
		}
	}
}

func TestComputeFlatSeries(t *testing.T) {
	rows := Compute(flatBars(40, 50, 2000))
	row := rows[35]

	// No losses ever arrive, so RSI stays undefined past its warm-up.
	if !math.IsNaN(row.RSI) {
		t.Fatalf("flat series should leave RSI undefined, got %v", row.RSI)
	}
	// Zero band range makes position undefined while width is plain zero.
	if !math.IsNaN(row.BBPosition) {
		t.Fatalf("flat series should leave bb_position undefined, got %v", row.BBPosition)
	}
	if row.BBWidth != 0 {
		t.Fatalf("flat series bb_width should be 0, got %v", row.BBWidth)
	}
	if row.VolumeRatio != 1 {
		t.Fatalf("constant volume should give ratio 1, got %v", row.VolumeRatio)
	}
	// MACD of a constant series collapses to zero everywhere defined.
	if row.MACDLine != 0 || row.MACDSignal != 0 || row.MACDHistogram != 0 {
		t.Fatalf("flat series MACD should be zero, got line=%v signal=%v hist=%v",
			row.MACDLine, row.MACDSignal, row.MACDHistogram)
	}
	if row.Complete() {
		t.Fatal("rows with undefined features must not report complete")
	}
}

func TestComputeBollingerExactValues(t *testing.T) {
	// Closes 1..20: mean 10.5, sample variance n(n+1)/12 = 35.
	bars := make([]storage.PriceBar, 20)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		close := float64(i + 1)
		bars[i] = storage.PriceBar{
			Ticker: "SEQ",
			Date:   base.AddDate(0, 0, i),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: int64(100 * (i + 1)),
		}
	}
	rows := Compute(bars)
	last := rows[19]

	if last.BBMiddle != 10.5 {
		t.Fatalf("bb_middle = %v, want 10.5", last.BBMiddle)
	}
	std := math.Sqrt(35)
	if math.Abs(last.BBUpper-(10.5+2*std)) > 1e-12 {
		t.Fatalf("bb_upper = %v, want %v", last.BBUpper, 10.5+2*std)
	}
	if math.Abs(last.BBLower-(10.5-2*std)) > 1e-12 {
		t.Fatalf("bb_lower = %v, want %v", last.BBLower, 10.5-2*std)
	}
	wantWidth := (last.BBUpper - last.BBLower) / 10.5
	if math.Abs(last.BBWidth-wantWidth) > 1e-12 {
		t.Fatalf("bb_width = %v, want %v", last.BBWidth, wantWidth)
	}
	wantPosition := (20 - last.BBLower) / (last.BBUpper - last.BBLower)
	if math.Abs(last.BBPosition-wantPosition) > 1e-12 {
		t.Fatalf("bb_position = %v, want %v", last.BBPosition, wantPosition)
	}

	// volume_ma over 100..2000 stepping 100 is 1050.
	if last.VolumeMA != 1050 {
		t.Fatalf("volume_ma = %v, want 1050", last.VolumeMA)
	}
	if math.Abs(last.VolumeRatio-2000.0/1050.0) > 1e-12 {
		t.Fatalf("volume_ratio = %v, want %v", last.VolumeRatio, 2000.0/1050.0)
	}
}

func TestRowVectorMatchesColumnOrder(t *testing.T) {
	row := Row{
		Open: 1, High: 2, Low: 3, Close: 4, Volume: 5,
		RSI: 6, MACDLine: 7, MACDSignal: 8, MACDHistogram: 9,
		BBMiddle: 10, BBUpper: 11, BBLower: 12, BBWidth: 13, BBPosition: 14,
		VolumeMA: 15, VolumeRatio: 16,
	}
	vector := row.Vector()
	for i, v := range vector {
		if v != float64(i+1) {
			t.Fatalf("column %q at index %d holds %v, want %d", FeatureColumns[i], i, v, i+1)
		}
	}
}

func TestEwmMeanMatchesExpandingWeights(t *testing.T) {
	// For x = [1, 2, 3] and span 3 (alpha 0.5) the weighted mean at the
	// last step is (0.25*1 + 0.5*2 + 1*3) / (0.25 + 0.5 + 1).
	got := ewmMean([]float64{1, 2, 3}, 3, 1)
	want := []float64{1, (0.5*1 + 2) / 1.5, (0.25*1 + 0.5*2 + 3) / 1.75}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("ewm[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEwmMeanDecaysAcrossGaps(t *testing.T) {
	// A NaN between observations still decays the earlier weight.
	got := ewmMean([]float64{1, math.NaN(), 3}, 3, 1)
	if got[1] != 1 {
		t.Fatalf("gap position should carry the running mean, got %v", got[1])
	}
	want := (0.25*1 + 3) / 1.25
	if math.Abs(got[2]-want) > 1e-12 {
		t.Fatalf("ewm after gap = %v, want %v", got[2], want)
	}
}

func TestEwmMeanMinPeriods(t *testing.T) {
	got := ewmMean([]float64{math.NaN(), 1, 2, 3}, 3, 3)
	for i := 0; i < 3; i++ {
		if !math.IsNaN(got[i]) {
			t.Fatalf("index %d should be undefined before three observations", i)
		}
	}
	if math.IsNaN(got[3]) {
		t.Fatal("index 3 should be defined after three observations")
	}
}

func TestRollingHelpers(t *testing.T) {
	x := []float64{2, 4, 6, 8}
	mean := rollingMean(x, 2)
	if !math.IsNaN(mean[0]) {
		t.Fatal("rolling mean needs a full window")
	}
	for i, want := range []float64{3, 5, 7} {
		if mean[i+1] != want {
			t.Fatalf("mean[%d] = %v, want %v", i+1, mean[i+1], want)
		}
	}

	std := rollingStd(x, 2)
	if !math.IsNaN(std[0]) {
		t.Fatal("rolling std needs a full window")
	}
	want := math.Sqrt(2)
	for i := 1; i < len(std); i++ {
		if math.Abs(std[i]-want) > 1e-12 {
			t.Fatalf("std[%d] = %v, want %v", i, std[i], want)
		}
	}
}

func TestComputeDatesPreserved(t *testing.T) {
	bars := syntheticBars(3)
	rows := Compute(bars)
	for i := range rows {
		want := day(fmt.Sprintf("2025-01-%02d", i+1))
		if !rows[i].Date.Equal(want) {
			t.Fatalf("row %d date = %s, want %s", i, rows[i].Date, want)
		}
	}
}
