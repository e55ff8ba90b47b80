package signalgen

import "trading-core/internal/model"

// levels is the classified view of the four reference levels
// (fib 38.2/50/61.8 and VWAP) relative to the current close.
type levels struct {
	supports    []float64
	resistances []float64
}

// classifyLevels splits the snapshot levels into supports (close at or
// above the level) and resistances (close below).
func classifyLevels(close float64, snap model.Snapshot) levels {
	var lv levels
	for _, level := range []float64{snap.Fib382, snap.Fib500, snap.Fib618, snap.VWAP} {
		if close < level {
			lv.resistances = append(lv.resistances, level)
		} else {
			lv.supports = append(lv.supports, level)
		}
	}
	return lv
}

// nearestSupport is the highest support strictly below price.
func (lv levels) nearestSupport(price float64) (float64, bool) {
	found := false
	nearest := 0.0
	for _, level := range lv.supports {
		if level < price && (!found || level > nearest) {
			nearest = level
			found = true
		}
	}
	return nearest, found
}

// nearestResistance is the lowest resistance strictly above price.
func (lv levels) nearestResistance(price float64) (float64, bool) {
	found := false
	nearest := 0.0
	for _, level := range lv.resistances {
		if level > price && (!found || level < nearest) {
			nearest = level
			found = true
		}
	}
	return nearest, found
}

// levelScore sums per-level proximity scores 1/(1 + |price-level|/price*100)
// over the levels on the given side of price, and counts them.
func levelScore(price float64, lvs []float64, isSupport bool) (score float64, count int) {
	for _, level := range lvs {
		onSide := (isSupport && level < price) || (!isSupport && level > price)
		if !onSide {
			continue
		}
		dist := price - level
		if dist < 0 {
			dist = -dist
		}
		distPct := dist / price * 100
		score += 1 / (1 + distPct)
		count++
	}
	return score, count
}
