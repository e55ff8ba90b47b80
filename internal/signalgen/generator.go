// Package signalgen detects retest entries on closed bars, prices
// TP/SL, applies the quality filter gate and owns the per-key position
// lock.
package signalgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"trading-core/internal/atrtracker"
	"trading-core/internal/indicators"
	"trading-core/internal/model"
	"trading-core/internal/ports"
	"trading-core/internal/streak"
	"trading-core/pkg/i18n"
	"trading-core/pkg/portfolio"
)

// Config holds the strategy parameters.
type Config struct {
	EMAPeriod      int
	ATRPeriod      int
	FibWindow      int
	TPATRMult      float64
	SLATRMult      float64
	ScoreThreshold float64
}

// DefaultConfig returns the production parameters: EMA 50, ATR 9,
// 9-bar fib window, TP 2.0 ATR capped one ATR past the bar extreme,
// SL 8.84 ATR.
func DefaultConfig() Config {
	return Config{
		EMAPeriod:      50,
		ATRPeriod:      9,
		FibWindow:      9,
		TPATRMult:      2.0,
		SLATRMult:      8.84,
		ScoreThreshold: 1.0,
	}
}

// ErrDuplicateActive reports an attempt to emit a second ACTIVE signal
// for a key. The caller treats it as a fatal invariant violation.
var ErrDuplicateActive = errors.New("duplicate active signal")

// Observer receives emitted signals. Panics in one observer are
// isolated from the others.
type Observer func(model.Signal)

// Generator runs retest detection for every (instrument, timeframe)
// series. The position-lock set is guarded because the outcome tracker
// releases locks from the tick path while bars are being processed.
type Generator struct {
	cfg     Config
	calc    *indicators.Calculator
	atr     *atrtracker.Tracker
	streaks *streak.Tracker
	filters *portfolio.FilterSet
	store   ports.SignalStore
	bus     ports.ObserverBus

	lockMu sync.Mutex
	locks  map[string]bool

	obsMu     sync.Mutex
	observers []Observer
}

// New builds a generator. filters may be nil, which accepts every
// candidate (legacy/testing mode); store may be nil in backtests.
func New(cfg Config, atr *atrtracker.Tracker, streaks *streak.Tracker, filters *portfolio.FilterSet, store ports.SignalStore, bus ports.ObserverBus) *Generator {
	calc := &indicators.Calculator{
		EMAPeriod: cfg.EMAPeriod,
		ATRPeriod: cfg.ATRPeriod,
		FibWindow: cfg.FibWindow,
	}
	if bus == nil {
		bus = ports.NoopBus{}
	}
	return &Generator{
		cfg:     cfg,
		calc:    calc,
		atr:     atr,
		streaks: streaks,
		filters: filters,
		store:   store,
		bus:     bus,
		locks:   make(map[string]bool),
	}
}

// OnSignal registers an observer for emitted signals.
func (g *Generator) OnSignal(o Observer) {
	g.obsMu.Lock()
	g.observers = append(g.observers, o)
	g.obsMu.Unlock()
}

// LoadActiveLocks re-acquires the position lock for every signal the
// store still reports ACTIVE. Called once at startup.
func (g *Generator) LoadActiveLocks(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	active, err := g.store.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("load active signals: %w", err)
	}
	g.lockMu.Lock()
	for _, s := range active {
		g.locks[model.Key(s.Instrument, s.Timeframe)] = true
	}
	g.lockMu.Unlock()
	log.Printf(i18n.Get("ActiveSignalsLoaded"), len(active))
	return nil
}

// Locked reports whether a position lock is held for the key.
func (g *Generator) Locked(instrument, timeframe string) bool {
	g.lockMu.Lock()
	defer g.lockMu.Unlock()
	return g.locks[model.Key(instrument, timeframe)]
}

// ReleaseLock frees the key after its signal closed. Called by the
// outcome tracker.
func (g *Generator) ReleaseLock(instrument, timeframe string) {
	g.lockMu.Lock()
	delete(g.locks, model.Key(instrument, timeframe))
	g.lockMu.Unlock()
}

func (g *Generator) tryAcquire(key string) bool {
	g.lockMu.Lock()
	defer g.lockMu.Unlock()
	if g.locks[key] {
		return false
	}
	g.locks[key] = true
	return true
}

// OnClosedBar runs the full per-bar pipeline over the series window
// (oldest first, ending with the just-closed bar). It returns the
// emitted signal, nil when no signal was produced.
func (g *Generator) OnClosedBar(ctx context.Context, window []model.Bar) (*model.Signal, error) {
	if len(window) == 0 {
		return nil, nil
	}
	bar := window[len(window)-1]
	if !bar.Closed {
		return nil, nil
	}

	snap, ok, err := g.calc.Compute(window)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	// The ATR history must reflect every closed bar, filtered or not,
	// or the percentile distribution drifts toward signal bars.
	g.atr.Update(bar.Instrument, bar.Timeframe, snap.ATR9)

	key := model.Key(bar.Instrument, bar.Timeframe)
	if g.Locked(bar.Instrument, bar.Timeframe) {
		return nil, nil
	}

	prev := bar
	if len(window) >= 2 {
		prev = window[len(window)-2]
	}

	candidate := g.detect(bar, prev, snap)
	if candidate == nil {
		return nil, nil
	}

	candidate.StreakAtSignal = g.streaks.Get(bar.Instrument, bar.Timeframe)

	if reason, pass := g.passesFilter(candidate, snap.ATR9); !pass {
		log.Printf(i18n.Get("SignalFiltered"), bar.Instrument, bar.Timeframe, reason)
		return nil, nil
	}

	if g.store != nil {
		if err := g.store.Save(ctx, candidate); err != nil {
			log.Printf(i18n.Get("SignalSaveFailed"), candidate.ID, err)
			return nil, fmt.Errorf("save signal %s: %w", candidate.ID, err)
		}
	}

	// Lock only after the save succeeded; a failed save leaves the key
	// free for the next bar.
	if !g.tryAcquire(key) {
		return nil, fmt.Errorf("%w for %s", ErrDuplicateActive, key)
	}

	log.Printf(i18n.Get("SignalEmitted"),
		candidate.Direction, candidate.Instrument, candidate.Timeframe,
		candidate.Entry, candidate.TP, candidate.SL, candidate.ATRAtSignal, candidate.StreakAtSignal)

	g.bus.Publish(ports.EventSignalEmitted, *candidate)
	g.notify(*candidate)
	return candidate, nil
}

// detect classifies levels and checks the retest conditions. At most
// one direction can match because the EMA trend test is exclusive; if
// both ever match the anomaly is logged and nothing is emitted.
func (g *Generator) detect(bar, prev model.Bar, snap model.Snapshot) *model.Signal {
	close := bar.Close
	lv := classifyLevels(close, snap)

	supportScore, supportCount := levelScore(close, lv.supports, true)
	resistScore, resistCount := levelScore(close, lv.resistances, false)

	nearestSup, hasSup := lv.nearestSupport(close)
	nearestRes, hasRes := lv.nearestResistance(close)

	uptrend := close > snap.EMA50
	downtrend := close < snap.EMA50

	shortOK := uptrend &&
		supportCount >= 1 &&
		supportScore >= g.cfg.ScoreThreshold &&
		hasSup &&
		(bar.Low <= nearestSup || prev.Low <= nearestSup) &&
		bar.IsBullish()

	longOK := downtrend &&
		resistCount >= 1 &&
		resistScore >= g.cfg.ScoreThreshold &&
		hasRes &&
		(bar.High >= nearestRes || prev.High >= nearestRes) &&
		bar.IsBearish()

	if shortOK && longOK {
		log.Printf(i18n.Get("SignalAnomaly"), bar.Instrument, bar.Timeframe)
		return nil
	}

	switch {
	case shortOK:
		tp, sl := g.priceTPSL(model.Short, close, snap.ATR9, bar.High, bar.Low)
		return g.newSignal(bar, model.Short, tp, sl, snap.ATR9)
	case longOK:
		tp, sl := g.priceTPSL(model.Long, close, snap.ATR9, bar.High, bar.Low)
		return g.newSignal(bar, model.Long, tp, sl, snap.ATR9)
	}
	return nil
}

// priceTPSL applies the narrow-TP/wide-SL pricing: TP distance is
// tp_mult ATRs but never beyond one ATR past the bar extreme, SL is
// sl_mult ATRs on the other side.
func (g *Generator) priceTPSL(dir model.Direction, entry, atr, high, low float64) (tp, sl float64) {
	tpDist := atr * g.cfg.TPATRMult
	slDist := atr * g.cfg.SLATRMult

	if dir == model.Long {
		tp = entry + tpDist
		if limit := high + atr; limit < tp {
			tp = limit
		}
		sl = entry - slDist
		return tp, sl
	}
	tp = entry - tpDist
	if limit := low - atr; limit > tp {
		tp = limit
	}
	sl = entry + slDist
	return tp, sl
}

func (g *Generator) newSignal(bar model.Bar, dir model.Direction, tp, sl, atr float64) *model.Signal {
	return &model.Signal{
		ID:          model.SignalID(bar.Instrument, bar.Timeframe, bar.OpenTime, dir),
		Instrument:  bar.Instrument,
		Timeframe:   bar.Timeframe,
		Time:        bar.OpenTime,
		Direction:   dir,
		Entry:       bar.Close,
		TP:          tp,
		SL:          sl,
		ATRAtSignal: atr,
		State:       model.StateActive,
	}
}

// passesFilter applies the quality gate. With no filter set loaded
// every candidate passes; with one loaded, whitelist membership is
// mandatory and both the streak range and the strict ATR percentile
// threshold must hold.
func (g *Generator) passesFilter(s *model.Signal, atr float64) (reason string, pass bool) {
	if g.filters == nil {
		return "", true
	}

	fc, ok := g.filters.Lookup(s.Instrument, s.Timeframe)
	if !ok || !fc.Enabled {
		return "not in portfolio", false
	}

	if s.StreakAtSignal < fc.StreakLo || s.StreakAtSignal > fc.StreakHi {
		return fmt.Sprintf("streak=%d not in [%d,%d]", s.StreakAtSignal, fc.StreakLo, fc.StreakHi), false
	}

	if fc.ATRPctThreshold > 0 {
		pct, ok := g.atr.Percentile(s.Instrument, s.Timeframe, atr)
		if !ok {
			return "ATR history insufficient", false
		}
		if pct <= fc.ATRPctThreshold {
			return fmt.Sprintf("atr_pct=%.2f <= %.2f", pct, fc.ATRPctThreshold), false
		}
	}
	return "", true
}

// WarmupATR replays the ATR series of a historical window into the
// percentile tracker, so percentile queries are defined right after a
// restart instead of needing min_samples fresh bars. Returns the
// number of values loaded.
func (g *Generator) WarmupATR(instrument, timeframe string, window []model.Bar) int {
	if len(window) == 0 {
		return 0
	}
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	closes := make([]float64, len(window))
	for i, b := range window {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	series := indicators.ATRSeries(highs, lows, closes, g.cfg.ATRPeriod)
	return g.atr.BulkLoad(instrument, timeframe, series)
}

func (g *Generator) notify(s model.Signal) {
	g.obsMu.Lock()
	observers := make([]Observer, len(g.observers))
	copy(observers, g.observers)
	g.obsMu.Unlock()

	for _, o := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf(i18n.Get("ObserverPanic"), r)
				}
			}()
			o(s)
		}()
	}
}
