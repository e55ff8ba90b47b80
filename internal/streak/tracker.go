// Package streak tracks consecutive signal outcomes per (instrument,
// timeframe), persisting through the streak store so counters survive
// restarts.
package streak

import (
	"context"
	"fmt"
	"sync"

	"trading-core/internal/model"
	"trading-core/internal/ports"
)

// Tracker keeps an in-memory view of streak state and writes through
// to the store on every recorded outcome.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]*model.StreakState
	store  ports.StreakStore
}

// New builds a tracker over the given store; a nil store keeps the
// tracker memory-only (backtest mode).
func New(store ports.StreakStore) *Tracker {
	return &Tracker{
		states: make(map[string]*model.StreakState),
		store:  store,
	}
}

// Load seeds in-memory state from the store on startup.
func (t *Tracker) Load(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	all, err := t.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load streaks: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for key, st := range all {
		s := st
		t.states[key] = &s
	}
	return nil
}

// Record folds an outcome into the key's streak and persists the new
// state. Only terminal outcomes advance the counter.
func (t *Tracker) Record(ctx context.Context, instrument, timeframe string, outcome model.Outcome) error {
	if outcome != model.StateTP && outcome != model.StateSL {
		return fmt.Errorf("streak: outcome %q is not terminal", outcome)
	}

	t.mu.Lock()
	key := model.Key(instrument, timeframe)
	st, ok := t.states[key]
	if !ok {
		st = &model.StreakState{}
		t.states[key] = st
	}
	st.Record(outcome)
	snapshot := *st
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Save(ctx, instrument, timeframe, snapshot); err != nil {
			return fmt.Errorf("save streak %s: %w", key, err)
		}
	}
	return nil
}

// Get returns the current signed streak for a key; zero when the key
// has no history.
func (t *Tracker) Get(instrument, timeframe string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.states[model.Key(instrument, timeframe)]; ok {
		return st.Streak
	}
	return 0
}

// State returns a copy of the full streak state for a key.
func (t *Tracker) State(instrument, timeframe string) model.StreakState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.states[model.Key(instrument, timeframe)]; ok {
		return *st
	}
	return model.StreakState{}
}

// All returns a snapshot of every tracked key.
func (t *Tracker) All() map[string]model.StreakState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]model.StreakState, len(t.states))
	for k, st := range t.states {
		out[k] = *st
	}
	return out
}

// RebuildFromOutcomes reconstructs a streak state purely from an
// ordered outcome history. Recovery path for keys the store has no row
// for yet.
func RebuildFromOutcomes(outcomes []model.Outcome) model.StreakState {
	var st model.StreakState
	for _, o := range outcomes {
		st.Record(o)
	}
	return st
}
