// Package outcome tracks ACTIVE signals against the live tick stream
// and the closed-bar stream, detects TP/SL touches, maintains MAE/MFE
// and publishes throttled excursion updates.
package outcome

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trading-core/internal/model"
	"trading-core/internal/ports"
	"trading-core/pkg/i18n"
)

// OutcomeObserver is notified exactly once when a signal closes.
type OutcomeObserver func(s model.Signal, outcome model.Outcome)

// tracked wraps an active signal with its running excursion extremes
// (price units) and the publish throttle.
type tracked struct {
	sig           model.Signal
	worstAdverse  float64
	bestFavorable float64
	limiter       *rate.Limiter
}

// Tracker holds the ACTIVE signal set. The tick path and the bar path
// may run on different goroutines; a single mutex serializes them.
type Tracker struct {
	mu        sync.Mutex
	active    map[string][]*tracked // instrument -> signals
	store     ports.SignalStore
	bus       ports.ObserverBus
	observers []OutcomeObserver
}

// New builds a tracker. store may be nil (backtest); bus may be nil.
func New(store ports.SignalStore, bus ports.ObserverBus) *Tracker {
	if bus == nil {
		bus = ports.NoopBus{}
	}
	return &Tracker{
		active: make(map[string][]*tracked),
		store:  store,
		bus:    bus,
	}
}

// OnOutcome registers an observer for signal closures.
func (t *Tracker) OnOutcome(o OutcomeObserver) {
	t.mu.Lock()
	t.observers = append(t.observers, o)
	t.mu.Unlock()
}

// Add starts tracking a freshly emitted signal. Re-adding an ID that
// is already tracked is a no-op, which keeps restart recovery
// idempotent.
func (t *Tracker) Add(s model.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tr := range t.active[s.Instrument] {
		if tr.sig.ID == s.ID {
			return
		}
	}
	t.active[s.Instrument] = append(t.active[s.Instrument], &tracked{
		sig:     s,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	})
}

// LoadActive seeds the tracker from the signal store on startup.
func (t *Tracker) LoadActive(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	signals, err := t.store.LoadActive(ctx)
	if err != nil {
		return err
	}
	for _, s := range signals {
		t.Add(s)
	}
	return nil
}

// ActiveCount returns the number of tracked signals.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, list := range t.active {
		n += len(list)
	}
	return n
}

// Active returns a snapshot of the tracked signals with current
// MAE/MFE folded in.
func (t *Tracker) Active() []model.Signal {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []model.Signal
	for _, list := range t.active {
		for _, tr := range list {
			s := tr.sig
			s.MAERatio, s.MFERatio = tr.ratios()
			out = append(out, s)
		}
	}
	return out
}

// OnTrade evaluates one trade print against every active signal on its
// instrument: TP/SL detection first, then excursion updates with the
// per-signal 1 Hz publish throttle.
func (t *Tracker) OnTrade(ctx context.Context, trade model.Trade) {
	t.mu.Lock()
	list := t.active[trade.Instrument]
	if len(list) == 0 {
		t.mu.Unlock()
		return
	}

	var closed []*tracked
	var maeUpdates []ports.MAEUpdate
	remaining := list[:0]
	for _, tr := range list {
		if outcome, price := tickOutcome(&tr.sig, trade.Price); outcome != "" {
			tr.close(outcome, trade.Time, price)
			closed = append(closed, tr)
			continue
		}
		tr.observe(trade.Price)
		if tr.limiter.Allow() {
			mae, mfe := tr.ratios()
			tr.sig.MAERatio, tr.sig.MFERatio = mae, mfe
			maeUpdates = append(maeUpdates, ports.MAEUpdate{ID: tr.sig.ID, MAERatio: mae, MFERatio: mfe})
		}
		remaining = append(remaining, tr)
	}
	t.active[trade.Instrument] = remaining
	observers := t.snapshotObservers()
	t.mu.Unlock()

	for _, u := range maeUpdates {
		if t.store != nil {
			if err := t.store.UpdateMAEMFE(ctx, u.ID, u.MAERatio, u.MFERatio); err != nil {
				log.Printf("update mae/mfe %s: %v", u.ID, err)
			}
		}
		t.bus.Publish(ports.EventSignalMAEUpdated, u)
	}
	for _, tr := range closed {
		t.finish(ctx, tr, observers)
	}
}

// OnBar evaluates a closed 1m bar against every active signal on its
// instrument, using high/low for both touches. A bar spanning both TP
// and SL resolves as SL (pessimistic rule). Used by replay and the
// backtester as well as the live bar path.
func (t *Tracker) OnBar(ctx context.Context, bar model.Bar) {
	if bar.Timeframe != "1m" || !bar.Closed {
		return
	}

	t.mu.Lock()
	list := t.active[bar.Instrument]
	if len(list) == 0 {
		t.mu.Unlock()
		return
	}

	var closed []*tracked
	remaining := list[:0]
	for _, tr := range list {
		// Excursions first, adverse extreme then favorable extreme.
		if tr.sig.Direction == model.Long {
			tr.observe(bar.Low)
			tr.observe(bar.High)
		} else {
			tr.observe(bar.High)
			tr.observe(bar.Low)
		}

		if outcome, price := barOutcome(&tr.sig, bar); outcome != "" {
			tr.close(outcome, bar.OpenTime, price)
			closed = append(closed, tr)
			continue
		}
		remaining = append(remaining, tr)
	}
	t.active[bar.Instrument] = remaining
	observers := t.snapshotObservers()
	t.mu.Unlock()

	for _, tr := range closed {
		t.finish(ctx, tr, observers)
	}
}

// Flush writes the latest MAE/MFE of every active signal to the store.
// Called during shutdown.
func (t *Tracker) Flush(ctx context.Context) {
	if t.store == nil {
		return
	}
	for _, s := range t.Active() {
		if err := t.store.UpdateMAEMFE(ctx, s.ID, s.MAERatio, s.MFERatio); err != nil {
			log.Printf("flush mae/mfe %s: %v", s.ID, err)
		}
	}
}

func (t *Tracker) snapshotObservers() []OutcomeObserver {
	out := make([]OutcomeObserver, len(t.observers))
	copy(out, t.observers)
	return out
}

// finish persists the closure, publishes it and notifies observers.
// The signal has already left the active set, so observers see the
// outcome exactly once and no MAE update can follow it.
func (t *Tracker) finish(ctx context.Context, tr *tracked, observers []OutcomeObserver) {
	s := tr.sig
	log.Printf(i18n.Get("SignalClosed"), s.ID, s.State, s.ClosePrice, s.MAERatio, s.MFERatio)

	if t.store != nil {
		if err := t.store.UpdateMAEMFE(ctx, s.ID, s.MAERatio, s.MFERatio); err != nil {
			log.Printf("update mae/mfe %s: %v", s.ID, err)
		}
		if err := t.store.UpdateState(ctx, s.ID, s.State, s.CloseTime, s.ClosePrice); err != nil {
			log.Printf("update state %s: %v", s.ID, err)
		}
	}

	t.bus.Publish(ports.EventSignalClosed, ports.SignalClosed{
		ID:         s.ID,
		State:      s.State,
		CloseTime:  s.CloseTime,
		ClosePrice: s.ClosePrice,
	})

	for _, o := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf(i18n.Get("ObserverPanic"), r)
				}
			}()
			o(s, s.State)
		}()
	}
}

// observe folds one price into the excursion extremes.
func (tr *tracked) observe(price float64) {
	var adverse, favorable float64
	if tr.sig.Direction == model.Long {
		adverse = tr.sig.Entry - price
		favorable = price - tr.sig.Entry
	} else {
		adverse = price - tr.sig.Entry
		favorable = tr.sig.Entry - price
	}
	if adverse > tr.worstAdverse {
		tr.worstAdverse = adverse
	}
	if favorable > tr.bestFavorable {
		tr.bestFavorable = favorable
	}
}

// ratios converts the price-unit extremes into the published MAE/MFE
// ratios: adverse over SL distance, favorable over TP distance. Both
// floor at zero; MAE may exceed 1 when price runs past the stop.
func (tr *tracked) ratios() (mae, mfe float64) {
	risk := tr.sig.RiskAmount()
	reward := tr.sig.RewardAmount()
	if risk > 0 {
		mae = tr.worstAdverse / risk
	}
	if reward > 0 {
		mfe = tr.bestFavorable / reward
	}
	if mae < 0 {
		mae = 0
	}
	if mfe < 0 {
		mfe = 0
	}
	return mae, mfe
}

func (tr *tracked) close(outcome model.Outcome, closeTime int64, closePrice float64) {
	tr.sig.State = outcome
	tr.sig.CloseTime = closeTime
	tr.sig.ClosePrice = closePrice
	tr.sig.MAERatio, tr.sig.MFERatio = tr.ratios()
}

// tickOutcome checks a single trade price. Outcomes close at the TP or
// SL level itself, not the trade price, matching the exchange's
// trigger semantics.
func tickOutcome(s *model.Signal, price float64) (model.Outcome, float64) {
	if s.Direction == model.Long {
		if price >= s.TP {
			return model.StateTP, s.TP
		}
		if price <= s.SL {
			return model.StateSL, s.SL
		}
		return "", 0
	}
	if price <= s.TP {
		return model.StateTP, s.TP
	}
	if price >= s.SL {
		return model.StateSL, s.SL
	}
	return "", 0
}

// barOutcome checks a closed 1m bar's range against both levels.
func barOutcome(s *model.Signal, bar model.Bar) (model.Outcome, float64) {
	var tpHit, slHit bool
	if s.Direction == model.Long {
		tpHit = bar.High >= s.TP
		slHit = bar.Low <= s.SL
	} else {
		tpHit = bar.Low <= s.TP
		slHit = bar.High >= s.SL
	}

	switch {
	case slHit:
		// Pessimistic rule: a bar spanning both levels counts as SL.
		return model.StateSL, s.SL
	case tpHit:
		return model.StateTP, s.TP
	}
	return "", 0
}
