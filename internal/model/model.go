// Package model holds the shared value types of the signal engine:
// bars, signals, streaks and filter configuration.
package model

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Timeframe period lengths in milliseconds.
const (
	MsPerMinute = int64(60_000)
)

// PeriodMs maps a timeframe label to its period in milliseconds.
var PeriodMs = map[string]int64{
	"1m":  1 * MsPerMinute,
	"3m":  3 * MsPerMinute,
	"5m":  5 * MsPerMinute,
	"15m": 15 * MsPerMinute,
	"30m": 30 * MsPerMinute,
}

// AggregatedTimeframes are the higher timeframes derived locally from 1m bars.
var AggregatedTimeframes = []string{"3m", "5m", "15m", "30m"}

// Bar is a single OHLCV candle. OpenTime is epoch milliseconds aligned to
// the timeframe's period boundary. Only closed bars enter the engine.
type Bar struct {
	Instrument string  `json:"instrument"`
	Timeframe  string  `json:"timeframe"`
	OpenTime   int64   `json:"open_time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	Closed     bool    `json:"closed"`
}

// Validate rejects bars carrying non-finite or non-positive prices.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("bar %s %s @%d: invalid price %v", b.Instrument, b.Timeframe, b.OpenTime, v)
		}
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return fmt.Errorf("bar %s %s @%d: invalid volume %v", b.Instrument, b.Timeframe, b.OpenTime, b.Volume)
	}
	return nil
}

// IsBullish reports close > open.
func (b Bar) IsBullish() bool { return b.Close > b.Open }

// IsBearish reports close < open.
func (b Bar) IsBearish() bool { return b.Close < b.Open }

// Trade is a single trade print from the exchange trade stream.
type Trade struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Quantity   float64 `json:"quantity"`
	Time       int64   `json:"time"`
}

// Snapshot holds the indicator values computed for one closed bar.
type Snapshot struct {
	EMA50  float64 `json:"ema50"`
	ATR9   float64 `json:"atr9"`
	Fib382 float64 `json:"fib_382"`
	Fib500 float64 `json:"fib_500"`
	Fib618 float64 `json:"fib_618"`
	VWAP   float64 `json:"vwap"`
}

// Direction of a signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// SignalState is the lifecycle state of a signal.
type SignalState string

const (
	StateActive SignalState = "ACTIVE"
	StateTP     SignalState = "TP"
	StateSL     SignalState = "SL"
)

// Outcome is a terminal signal state (TP or SL).
type Outcome = SignalState

// Signal is an emitted trade signal, tracked until TP or SL.
type Signal struct {
	ID             string      `json:"id"`
	Instrument     string      `json:"instrument"`
	Timeframe      string      `json:"timeframe"`
	Time           int64       `json:"time"`
	Direction      Direction   `json:"direction"`
	Entry          float64     `json:"entry"`
	TP             float64     `json:"tp"`
	SL             float64     `json:"sl"`
	ATRAtSignal    float64     `json:"atr_at_signal"`
	StreakAtSignal int         `json:"streak_at_signal"`
	State          SignalState `json:"state"`
	MAERatio       float64     `json:"mae_ratio"`
	MFERatio       float64     `json:"mfe_ratio"`
	CloseTime      int64       `json:"close_time,omitempty"`
	ClosePrice     float64     `json:"close_price,omitempty"`
}

// SignalID derives the stable signal identifier from the signal's natural
// key. The same (instrument, timeframe, open_time, direction) always maps
// to the same ID, which keeps replay idempotent across restarts.
func SignalID(instrument, timeframe string, openTime int64, dir Direction) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d|%s", instrument, timeframe, openTime, dir)
	return fmt.Sprintf("sig-%016x", h.Sum64())
}

// RiskAmount is the price distance from entry to stop loss.
func (s *Signal) RiskAmount() float64 {
	if s.Direction == Long {
		return s.Entry - s.SL
	}
	return s.SL - s.Entry
}

// RewardAmount is the price distance from entry to take profit.
func (s *Signal) RewardAmount() float64 {
	if s.Direction == Long {
		return s.TP - s.Entry
	}
	return s.Entry - s.TP
}

// StreakState is the signed consecutive-outcome counter for one key.
// Positive streaks count consecutive TPs, negative consecutive SLs.
type StreakState struct {
	Streak int `json:"streak"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// Record folds an outcome into the streak state.
func (s *StreakState) Record(outcome Outcome) {
	switch outcome {
	case StateTP:
		s.Wins++
		if s.Streak >= 0 {
			s.Streak++
		} else {
			s.Streak = 1
		}
	case StateSL:
		s.Losses++
		if s.Streak <= 0 {
			s.Streak--
		} else {
			s.Streak = -1
		}
	}
}

// WinRate over all recorded outcomes, 0 when no history.
func (s StreakState) WinRate() float64 {
	total := s.Wins + s.Losses
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total)
}

// FilterConfig is one whitelist entry of the signal quality filter,
// keyed by (instrument, timeframe).
type FilterConfig struct {
	Instrument      string  `yaml:"instrument" json:"instrument"`
	Timeframe       string  `yaml:"timeframe" json:"timeframe"`
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	StreakLo        int     `yaml:"streak_lo" json:"streak_lo"`
	StreakHi        int     `yaml:"streak_hi" json:"streak_hi"`
	ATRPctThreshold float64 `yaml:"atr_pct_threshold" json:"atr_pct_threshold"`
	PositionQty     float64 `yaml:"position_qty" json:"position_qty"`
}

// Key joins instrument and timeframe into the map key used across the
// engine ("BTCUSDT_5m").
func Key(instrument, timeframe string) string {
	return instrument + "_" + timeframe
}
