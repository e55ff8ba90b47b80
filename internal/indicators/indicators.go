// Package indicators implements the pure indicator math used by the
// signal engine: EMA, Wilder ATR, rolling Fibonacci levels and VWAP.
// All functions operate on ordered closed-bar series and carry no
// internal state.
package indicators

import "math"

// SMA calculates the simple moving average for the last period values.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average of the last value, seeded
// with the SMA of the first period values and smoothed by 2/(period+1).
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	multiplier := 2.0 / float64(period+1)

	ema := 0.0
	for i := 0; i < period; i++ {
		ema += values[i]
	}
	ema /= float64(period)

	for i := period; i < len(values); i++ {
		ema = values[i]*multiplier + ema*(1-multiplier)
	}
	return ema
}

// TrueRange returns the per-bar true range series:
// max(H-L, |H-Cprev|, |L-Cprev|). The first element has no previous
// close and degrades to H-L.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(highs)
	if n == 0 {
		return nil
	}
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR returns the latest Wilder-smoothed average true range. The first
// ATR is a simple mean of the first period true ranges; each subsequent
// value follows the recursion ATR = (prev*(period-1) + TR) / period.
// The recursion order matters and must not be reformulated.
func ATR(highs, lows, closes []float64, period int) float64 {
	tr := TrueRange(highs, lows, closes)
	if period <= 0 || len(tr) < period {
		return math.NaN()
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)

	for i := period; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
	}
	return atr
}

// ATRSeries returns the full Wilder ATR series; entries before the
// first complete period are NaN. Used by the startup warmup to replay
// historical ATRs into the percentile tracker in one pass.
func ATRSeries(highs, lows, closes []float64, period int) []float64 {
	tr := TrueRange(highs, lows, closes)
	out := make([]float64, len(tr))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(tr) < period {
		return out
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += tr[i]
	}
	atr /= float64(period)
	out[period-1] = atr

	for i := period; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// Highest returns the highest value among the last period entries.
func Highest(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	hi := values[len(values)-period]
	for _, v := range values[len(values)-period+1:] {
		if v > hi {
			hi = v
		}
	}
	return hi
}

// Lowest returns the lowest value among the last period entries.
func Lowest(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}
	lo := values[len(values)-period]
	for _, v := range values[len(values)-period+1:] {
		if v < lo {
			lo = v
		}
	}
	return lo
}

// FibLevels computes the 38.2/50/61.8 retracement levels of the rolling
// highest-high / lowest-low window: hh - (hh-ll) * f.
func FibLevels(highs, lows []float64, window int) (fib382, fib500, fib618 float64) {
	hh := Highest(highs, window)
	ll := Lowest(lows, window)
	if math.IsNaN(hh) || math.IsNaN(ll) {
		nan := math.NaN()
		return nan, nan, nan
	}
	span := hh - ll
	return hh - span*0.382, hh - span*0.500, hh - span*0.618
}
