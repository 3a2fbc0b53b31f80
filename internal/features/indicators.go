package features

import (
	"math"
	"time"

	"updown-dataset/internal/storage"
)

// NumFeatures is the width of one model input row.
const NumFeatures = 16

// FeatureColumns fixes the feature order shared by every artifact. The
// binary tensor layout and the manifest both follow it.
var FeatureColumns = [NumFeatures]string{
	"open", "high", "low", "close", "volume",
	"rsi", "macd_line", "macd_signal", "macd_histogram",
	"bb_middle", "bb_upper", "bb_lower", "bb_width", "bb_position",
	"volume_ma", "volume_ratio",
}

// Indicator windows match the common charting defaults.
const (
	rsiPeriod        = 14
	macdFastSpan     = 12
	macdSlowSpan     = 26
	macdSignalSpan   = 9
	bollingerPeriod  = 20
	bollingerStdMult = 2.0
	volumeMAPeriod   = 20
)

// Row is one trading day with its derived indicators. Indicator fields
// hold NaN until enough history exists to define them; they are never
// zero-filled or carried forward.
type Row struct {
	Date          time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	RSI           float64
	MACDLine      float64
	MACDSignal    float64
	MACDHistogram float64
	BBMiddle      float64
	BBUpper       float64
	BBLower       float64
	BBWidth       float64
	BBPosition    float64
	VolumeMA      float64
	VolumeRatio   float64
}

// Vector flattens the row into feature column order.
func (r Row) Vector() [NumFeatures]float64 {
	return [NumFeatures]float64{
		r.Open, r.High, r.Low, r.Close, r.Volume,
		r.RSI, r.MACDLine, r.MACDSignal, r.MACDHistogram,
		r.BBMiddle, r.BBUpper, r.BBLower, r.BBWidth, r.BBPosition,
		r.VolumeMA, r.VolumeRatio,
	}
}

// Complete reports whether every feature is defined.
func (r Row) Complete() bool {
	for _, v := range r.Vector() {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Compute derives the full indicator set from ascending daily bars.
func Compute(bars []storage.PriceBar) []Row {
	n := len(bars)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, bar := range bars {
		closes[i] = bar.Close
		volumes[i] = float64(bar.Volume)
	}

	rsi := relativeStrength(closes, rsiPeriod)
	macdLine, macdSignal, macdHist := macd(closes)
	bbMiddle, bbUpper, bbLower, bbWidth, bbPosition := bollinger(closes, bollingerPeriod, bollingerStdMult)
	volumeMA := rollingMean(volumes, volumeMAPeriod)

	rows := make([]Row, n)
	for i, bar := range bars {
		ratio := math.NaN()
		if !math.IsNaN(volumeMA[i]) && volumeMA[i] != 0 {
			ratio = volumes[i] / volumeMA[i]
		}
		rows[i] = Row{
			Date:          storage.Day(bar.Date),
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Volume:        volumes[i],
			RSI:           rsi[i],
			MACDLine:      macdLine[i],
			MACDSignal:    macdSignal[i],
			MACDHistogram: macdHist[i],
			BBMiddle:      bbMiddle[i],
			BBUpper:       bbUpper[i],
			BBLower:       bbLower[i],
			BBWidth:       bbWidth[i],
			BBPosition:    bbPosition[i],
			VolumeMA:      volumeMA[i],
			VolumeRatio:   ratio,
		}
	}
	return rows
}

// relativeStrength computes RSI from exponentially weighted average gains
// and losses. The first difference is undefined, so the output stays NaN
// through index period-1 and becomes defined at index period. A window
// with zero average loss leaves RSI undefined rather than pinned to 100.
func relativeStrength(closes []float64, period int) []float64 {
	delta := diff(closes)
	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))
	for i, d := range delta {
		if math.IsNaN(d) {
			gains[i] = math.NaN()
			losses[i] = math.NaN()
			continue
		}
		if d > 0 {
			gains[i] = d
		}
		if d < 0 {
			losses[i] = -d
		}
	}

	avgGain := ewmMean(gains, period, period)
	avgLoss := ewmMean(losses, period, period)
	out := make([]float64, len(closes))
	for i := range out {
		switch {
		case math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]):
			out[i] = math.NaN()
		case avgLoss[i] == 0:
			out[i] = math.NaN()
		default:
			rs := avgGain[i] / avgLoss[i]
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// macd returns the MACD line, its signal, and the histogram. The line is
// defined once the slow average is, the signal once nine line values have
// accumulated on top of that.
func macd(closes []float64) (line, signal, hist []float64) {
	fast := ewmMean(closes, macdFastSpan, macdFastSpan)
	slow := ewmMean(closes, macdSlowSpan, macdSlowSpan)

	n := len(closes)
	line = make([]float64, n)
	for i := 0; i < n; i++ {
		line[i] = fast[i] - slow[i]
	}
	signal = ewmMean(line, macdSignalSpan, macdSignalSpan)
	hist = make([]float64, n)
	for i := 0; i < n; i++ {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}

// bollinger returns the middle, upper, and lower bands plus the derived
// width and position columns. Width is undefined when the middle band is
// zero; position is undefined when the band has no range.
func bollinger(closes []float64, period int, mult float64) (middle, upper, lower, width, position []float64) {
	n := len(closes)
	middle = rollingMean(closes, period)
	std := rollingStd(closes, period)
	upper = make([]float64, n)
	lower = make([]float64, n)
	width = make([]float64, n)
	position = make([]float64, n)

	for i := 0; i < n; i++ {
		upper[i] = middle[i] + mult*std[i]
		lower[i] = middle[i] - mult*std[i]

		switch {
		case math.IsNaN(upper[i]) || math.IsNaN(lower[i]):
			width[i] = math.NaN()
		case middle[i] == 0:
			width[i] = math.NaN()
		default:
			width[i] = (upper[i] - lower[i]) / middle[i]
		}

		span := upper[i] - lower[i]
		switch {
		case math.IsNaN(span), span == 0:
			position[i] = math.NaN()
		default:
			position[i] = (closes[i] - lower[i]) / span
		}
	}
	return middle, upper, lower, width, position
}

// diff returns one-day differences with NaN at index 0.
func diff(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(out) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// ewmMean is an exponentially weighted mean with expanding bias-corrected
// weights. NaN inputs decay the accumulated weight without contributing,
// and the output stays NaN until minPeriods finite values have arrived.
func ewmMean(x []float64, span, minPeriods int) []float64 {
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(x))
	var num, den float64
	seen := 0
	for i, v := range x {
		num *= 1 - alpha
		den *= 1 - alpha
		if !math.IsNaN(v) {
			num += v
			den++
			seen++
		}
		if seen >= minPeriods && den > 0 {
			out[i] = num / den
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// rollingMean is a simple moving average; positions before a full window
// hold NaN.
func rollingMean(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += x[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

// rollingStd is the sample standard deviation over a full window.
func rollingStd(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for j := i - window + 1; j <= i; j++ {
			sum += x[j]
		}
		mean := sum / float64(window)
		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := x[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(window-1))
	}
	return out
}
