package indicators

import (
	"fmt"
	"math"

	"trading-core/internal/model"
)

// Calculator bundles the indicator periods and produces per-bar
// snapshots over a caller-supplied closed-bar window.
type Calculator struct {
	EMAPeriod int
	ATRPeriod int
	FibWindow int

	// Session controls VWAP accumulation; nil means never reset.
	Session SessionEpochFunc
}

// NewCalculator builds a calculator with the engine defaults
// (EMA 50, ATR 9, fib window 9).
func NewCalculator() *Calculator {
	return &Calculator{EMAPeriod: 50, ATRPeriod: 9, FibWindow: 9}
}

// MinBars is the window length required before Compute can produce a
// complete snapshot.
func (c *Calculator) MinBars() int {
	n := c.EMAPeriod
	if c.ATRPeriod > n {
		n = c.ATRPeriod
	}
	if c.FibWindow > n {
		n = c.FibWindow
	}
	return n
}

// Compute calculates the snapshot for the last bar of the window.
// It returns ok=false when the window is too short for any indicator,
// and an error when the input carries non-finite values.
func (c *Calculator) Compute(bars []model.Bar) (model.Snapshot, bool, error) {
	if len(bars) < c.MinBars() {
		return model.Snapshot{}, false, nil
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	openTimes := make([]int64, len(bars))
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return model.Snapshot{}, false, fmt.Errorf("indicator input: %w", err)
		}
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
		volumes[i] = b.Volume
		openTimes[i] = b.OpenTime
	}

	fib382, fib500, fib618 := FibLevels(highs, lows, c.FibWindow)
	snap := model.Snapshot{
		EMA50:  EMA(closes, c.EMAPeriod),
		ATR9:   ATR(highs, lows, closes, c.ATRPeriod),
		Fib382: fib382,
		Fib500: fib500,
		Fib618: fib618,
		VWAP:   VWAP(highs, lows, closes, volumes, openTimes, c.Session),
	}

	for _, v := range []float64{snap.EMA50, snap.ATR9, snap.Fib382, snap.Fib500, snap.Fib618, snap.VWAP} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Snapshot{}, false, nil
		}
	}
	return snap, true, nil
}
