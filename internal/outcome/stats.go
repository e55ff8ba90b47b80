package outcome

import "trading-core/internal/model"

// R-multiple convention: the SL distance is 4.42x the TP distance
// (8.84 / 2.0), so each TP earns +1R and each SL costs -4.42R.
// Breakeven win rate = 4.42 / (1 + 4.42) = 81.5%.
const (
	TPUnitsR = 1.0
	SLUnitsR = 4.42
)

// BreakevenWinRate is the win rate at which expectancy is zero.
const BreakevenWinRate = SLUnitsR / (TPUnitsR + SLUnitsR)

// GroupStats aggregates outcomes for one breakdown bucket.
type GroupStats struct {
	Total  int `json:"total"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Active int `json:"active"`
}

// WinRate over resolved signals, 0 when none resolved.
func (g GroupStats) WinRate() float64 {
	resolved := g.Wins + g.Losses
	if resolved == 0 {
		return 0
	}
	return float64(g.Wins) / float64(resolved)
}

// NetR is the total R-multiple of the bucket's resolved signals.
func (g GroupStats) NetR() float64 {
	return float64(g.Wins)*TPUnitsR - float64(g.Losses)*SLUnitsR
}

// Summary is the read-only statistics view over a signal set.
type Summary struct {
	Overall      GroupStats            `json:"overall"`
	ByInstrument map[string]GroupStats `json:"by_instrument"`
	ByTimeframe  map[string]GroupStats `json:"by_timeframe"`
	ByDirection  map[string]GroupStats `json:"by_direction"`
	AvgMAE       float64               `json:"avg_mae"`
	AvgMFE       float64               `json:"avg_mfe"`
}

// Summarize computes win rates, R totals and MAE/MFE averages over an
// arbitrary signal set (closed or mixed).
func Summarize(signals []model.Signal) Summary {
	sum := Summary{
		ByInstrument: make(map[string]GroupStats),
		ByTimeframe:  make(map[string]GroupStats),
		ByDirection:  make(map[string]GroupStats),
	}

	var maeTotal, mfeTotal float64
	resolved := 0
	for _, s := range signals {
		fold := func(g GroupStats) GroupStats {
			g.Total++
			switch s.State {
			case model.StateTP:
				g.Wins++
			case model.StateSL:
				g.Losses++
			default:
				g.Active++
			}
			return g
		}
		sum.Overall = fold(sum.Overall)
		sum.ByInstrument[s.Instrument] = fold(sum.ByInstrument[s.Instrument])
		sum.ByTimeframe[s.Timeframe] = fold(sum.ByTimeframe[s.Timeframe])
		sum.ByDirection[string(s.Direction)] = fold(sum.ByDirection[string(s.Direction)])

		if s.State == model.StateTP || s.State == model.StateSL {
			maeTotal += s.MAERatio
			mfeTotal += s.MFERatio
			resolved++
		}
	}

	if resolved > 0 {
		sum.AvgMAE = maeTotal / float64(resolved)
		sum.AvgMFE = mfeTotal / float64(resolved)
	}
	return sum
}
