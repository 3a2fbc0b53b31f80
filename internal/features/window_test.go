package features

import (
	"fmt"
	"math"
	"testing"
	"time"
)

// denseRow builds a fully defined row whose every feature equals base,
// except close which the caller controls to steer normalization.
func denseRow(date time.Time, base, close float64) Row {
	return Row{
		Date: date, Open: base, High: base + 1, Low: base - 1, Close: close, Volume: base,
		RSI: base, MACDLine: base, MACDSignal: base, MACDHistogram: base,
		BBMiddle: base, BBUpper: base + 2, BBLower: base - 2, BBWidth: base, BBPosition: base,
		VolumeMA: base, VolumeRatio: base,
	}
}

func denseRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = denseRow(day(fmt.Sprintf("2025-02-%02d", i+1)), float64(10+i), float64(10*(i+1)))
	}
	return rows
}

func allLabels(rows []Row) map[time.Time]int {
	labels := make(map[time.Time]int, len(rows))
	for i, row := range rows {
		labels[row.Date] = i % 2
	}
	return labels
}

func TestBuildWindowsShapeAndDates(t *testing.T) {
	rows := denseRows(5)
	samples, missing := BuildWindows("TEST", rows, allLabels(rows), 3)
	if missing != 0 {
		t.Fatalf("expected no missing labels, got %d", missing)
	}
	if len(samples) != 2 {
		t.Fatalf("5 usable rows with length 3 should give 2 windows, got %d", len(samples))
	}

	for i, sample := range samples {
		if len(sample.Tensor) != 3 {
			t.Fatalf("sample %d has %d rows, want 3", i, len(sample.Tensor))
		}
		for _, row := range sample.Tensor {
			if len(row) != NumFeatures {
				t.Fatalf("sample %d row width %d, want %d", i, len(row), NumFeatures)
			}
			for _, v := range row {
				if v < 0 || v > 1 {
					t.Fatalf("normalized value %v outside [0,1]", v)
				}
			}
		}
	}

	// The first window covers rows 0..2, so it is keyed and labeled at
	// row 2's date; the second at row 3's.
	if !samples[0].Date.Equal(rows[2].Date) || !samples[1].Date.Equal(rows[3].Date) {
		t.Fatalf("window dates = %s, %s; want %s, %s",
			samples[0].Date, samples[1].Date, rows[2].Date, rows[3].Date)
	}
	if samples[0].Label != 0 || samples[1].Label != 1 {
		t.Fatalf("labels = %d, %d; want 0, 1", samples[0].Label, samples[1].Label)
	}
}

func TestBuildWindowsMinMaxScaling(t *testing.T) {
	rows := denseRows(4)
	samples, _ := BuildWindows("TEST", rows, allLabels(rows), 3)
	if len(samples) != 1 {
		t.Fatalf("expected 1 window, got %d", len(samples))
	}

	// Closes in the first window are 10, 20, 30.
	const closeCol = 3
	tensor := samples[0].Tensor
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(tensor[i][closeCol]-want[i]) > 1e-12 {
			t.Fatalf("close[%d] normalized to %v, want %v", i, tensor[i][closeCol], want[i])
		}
	}
}

func TestBuildWindowsConstantColumn(t *testing.T) {
	rows := denseRows(4)
	for i := range rows {
		rows[i].Open = 42
	}
	samples, _ := BuildWindows("TEST", rows, allLabels(rows), 3)
	if len(samples) != 1 {
		t.Fatalf("expected 1 window, got %d", len(samples))
	}
	const openCol = 0
	for i, row := range samples[0].Tensor {
		if row[openCol] != 0.5 {
			t.Fatalf("constant column row %d = %v, want 0.5", i, row[openCol])
		}
	}
}

func TestBuildWindowsFiltersIncompleteRows(t *testing.T) {
	rows := denseRows(5)
	rows[1].RSI = math.NaN()
	samples, _ := BuildWindows("TEST", rows, allLabels(rows), 3)
	if len(samples) != 1 {
		t.Fatalf("4 usable rows with length 3 should give 1 window, got %d", len(samples))
	}
	// With row 1 dropped the remaining usable rows are 0, 2, 3, 4 and the
	// only window ends at row 3.
	if !samples[0].Date.Equal(rows[3].Date) {
		t.Fatalf("window date = %s, want %s", samples[0].Date, rows[3].Date)
	}
}

func TestBuildWindowsTooFewRows(t *testing.T) {
	rows := denseRows(3)
	samples, missing := BuildWindows("TEST", rows, allLabels(rows), 3)
	if samples != nil || missing != 0 {
		t.Fatalf("3 usable rows cannot fill length 3 plus a label day, got %d samples", len(samples))
	}
}

func TestBuildWindowsMissingLabelSkipped(t *testing.T) {
	rows := denseRows(5)
	labels := allLabels(rows)
	delete(labels, rows[2].Date)
	samples, missing := BuildWindows("TEST", rows, labels, 3)
	if missing != 1 {
		t.Fatalf("expected 1 skipped window, got %d", missing)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 remaining window, got %d", len(samples))
	}
	if !samples[0].Date.Equal(rows[3].Date) {
		t.Fatalf("surviving window should end at row 3, got %s", samples[0].Date)
	}
}

func TestBuildWindowsNoLabelsAtAll(t *testing.T) {
	rows := denseRows(6)
	samples, missing := BuildWindows("TEST", rows, map[time.Time]int{}, 3)
	if len(samples) != 0 {
		t.Fatalf("expected no samples without labels, got %d", len(samples))
	}
	if missing != 3 {
		t.Fatalf("every candidate window should count as missing, got %d", missing)
	}
}
