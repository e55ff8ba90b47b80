// Package aggregator rolls 1-minute bars up into higher timeframes
// (3m, 5m, 15m, 30m) locally, so the engine only needs one upstream
// stream per instrument.
package aggregator

import (
	"errors"
	"fmt"

	"trading-core/internal/model"
)

// ErrOutOfOrder is returned when a 1m bar arrives with an open time at
// or before a bar already folded into the current slot.
var ErrOutOfOrder = errors.New("aggregator: out-of-order 1m bar")

// slot is one open aggregation window for an (instrument, timeframe).
type slot struct {
	openTime int64
	open     float64
	high     float64
	low      float64
	close    float64
	volume   float64
	lastSrc  int64 // open time of the last 1m bar folded in
}

// Aggregator maintains open aggregation slots per (instrument,
// timeframe) and emits a closed higher-timeframe bar whenever a 1m bar
// crosses a period boundary. It is not safe for concurrent use; the
// serialized closed-bar path is its only caller.
type Aggregator struct {
	timeframes []string
	slots      map[string]*slot
}

// New builds an aggregator for the given target timeframes; nil selects
// the engine defaults (3m, 5m, 15m, 30m).
func New(timeframes []string) *Aggregator {
	if timeframes == nil {
		timeframes = model.AggregatedTimeframes
	}
	valid := make([]string, 0, len(timeframes))
	for _, tf := range timeframes {
		if _, ok := model.PeriodMs[tf]; ok && tf != "1m" {
			valid = append(valid, tf)
		}
	}
	return &Aggregator{
		timeframes: valid,
		slots:      make(map[string]*slot),
	}
}

// Add folds one closed 1m bar into every target timeframe and returns
// the higher-timeframe bars completed by it, in timeframe order.
func (a *Aggregator) Add(b model.Bar) ([]model.Bar, error) {
	if b.Timeframe != "1m" {
		return nil, fmt.Errorf("aggregator: expected 1m bar, got %s", b.Timeframe)
	}
	if !b.Closed {
		return nil, nil
	}

	var emitted []model.Bar
	for _, tf := range a.timeframes {
		out, err := a.addToTimeframe(b, tf)
		if err != nil {
			return emitted, err
		}
		if out != nil {
			emitted = append(emitted, *out)
		}
	}
	return emitted, nil
}

func (a *Aggregator) addToTimeframe(b model.Bar, tf string) (*model.Bar, error) {
	period := model.PeriodMs[tf]
	slotOpen := (b.OpenTime / period) * period
	key := model.Key(b.Instrument, tf)

	s, ok := a.slots[key]
	if !ok {
		a.slots[key] = &slot{
			openTime: slotOpen,
			open:     b.Open,
			high:     b.High,
			low:      b.Low,
			close:    b.Close,
			volume:   b.Volume,
			lastSrc:  b.OpenTime,
		}
		return nil, nil
	}

	if b.OpenTime <= s.lastSrc {
		return nil, fmt.Errorf("%w: %s %s @%d (slot already at %d)",
			ErrOutOfOrder, b.Instrument, tf, b.OpenTime, s.lastSrc)
	}

	if slotOpen == s.openTime {
		if b.High > s.high {
			s.high = b.High
		}
		if b.Low < s.low {
			s.low = b.Low
		}
		s.close = b.Close
		s.volume += b.Volume
		s.lastSrc = b.OpenTime
		return nil, nil
	}

	// Slot advanced: emit the finished window and start a new one from b.
	out := &model.Bar{
		Instrument: b.Instrument,
		Timeframe:  tf,
		OpenTime:   s.openTime,
		Open:       s.open,
		High:       s.high,
		Low:        s.low,
		Close:      s.close,
		Volume:     s.volume,
		Closed:     true,
	}
	a.slots[key] = &slot{
		openTime: slotOpen,
		open:     b.Open,
		high:     b.High,
		low:      b.Low,
		close:    b.Close,
		volume:   b.Volume,
		lastSrc:  b.OpenTime,
	}
	return out, nil
}

// Reset drops every open slot, typically before RESTORE re-seeds the
// aggregator from persisted history.
func (a *Aggregator) Reset() {
	a.slots = make(map[string]*slot)
}
