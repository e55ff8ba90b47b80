package indicators

import "math"

// SessionEpochFunc maps a bar open time (ms) to its session epoch. Bars
// that share an epoch accumulate into the same VWAP session. The zero
// value (nil) means never reset: the whole series is one session.
type SessionEpochFunc func(openTimeMs int64) int64

// VWAP returns the volume-weighted average of typical price (H+L+C)/3
// accumulated over the current session. With a nil session function the
// accumulator spans the entire input, which is the engine default.
// When cumulative volume is zero the latest close is returned.
func VWAP(highs, lows, closes, volumes []float64, openTimes []int64, session SessionEpochFunc) float64 {
	n := len(closes)
	if n == 0 {
		return math.NaN()
	}

	start := 0
	if session != nil && len(openTimes) == n {
		epoch := session(openTimes[n-1])
		for i := n - 1; i >= 0; i-- {
			if session(openTimes[i]) != epoch {
				start = i + 1
				break
			}
		}
	}

	cumVol := 0.0
	cumPV := 0.0
	for i := start; i < n; i++ {
		tp := (highs[i] + lows[i] + closes[i]) / 3
		cumVol += volumes[i]
		cumPV += tp * volumes[i]
	}

	if cumVol <= 0 {
		return closes[n-1]
	}
	return cumPV / cumVol
}
