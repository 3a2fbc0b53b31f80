package features

import (
	"time"
)

// Sample is one training example: a normalized feature window and the
// direction label of the window's final day.
type Sample struct {
	Ticker string
	Date   time.Time
	Label  int
	Tensor [][]float64
}

// BuildWindows slides a fixed-length window over the complete rows of one
// ticker. Rows with any undefined feature are filtered out first, so every
// window is dense. The label is looked up at the window's final day;
// windows whose final day carries no label are skipped and counted in the
// second return. Fewer usable rows than length+1 yields no samples.
func BuildWindows(ticker string, rows []Row, labels map[time.Time]int, length int) ([]Sample, int) {
	usable := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.Complete() {
			usable = append(usable, row)
		}
	}
	if length < 1 || len(usable) < length+1 {
		return nil, 0
	}

	samples := make([]Sample, 0, len(usable)-length)
	missing := 0
	for i := length; i < len(usable); i++ {
		last := usable[i-1]
		label, ok := labels[last.Date]
		if !ok {
			missing++
			continue
		}
		samples = append(samples, Sample{
			Ticker: ticker,
			Date:   last.Date,
			Label:  label,
			Tensor: normalizeWindow(usable[i-length : i]),
		})
	}
	return samples, missing
}

// normalizeWindow rescales every feature column to [0,1] within the
// window. A column with no range maps to 0.5 for each row.
func normalizeWindow(window []Row) [][]float64 {
	vectors := make([][NumFeatures]float64, len(window))
	for i, row := range window {
		vectors[i] = row.Vector()
	}

	for col := 0; col < NumFeatures; col++ {
		lo, hi := vectors[0][col], vectors[0][col]
		for i := 1; i < len(vectors); i++ {
			v := vectors[i][col]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		rng := hi - lo
		for i := range vectors {
			if rng == 0 {
				vectors[i][col] = 0.5
			} else {
				vectors[i][col] = (vectors[i][col] - lo) / rng
			}
		}
	}

	out := make([][]float64, len(vectors))
	for i := range vectors {
		row := make([]float64, NumFeatures)
		copy(row, vectors[i][:])
		out[i] = row
	}
	return out
}
