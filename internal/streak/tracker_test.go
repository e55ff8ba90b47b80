package streak

import (
	"context"
	"sync"
	"testing"

	"trading-core/internal/model"
	"trading-core/internal/ports"
)

// memStreakStore records saves for assertions.
type memStreakStore struct {
	mu    sync.Mutex
	saved map[string]model.StreakState
}

func newMemStreakStore() *memStreakStore {
	return &memStreakStore{saved: make(map[string]model.StreakState)}
}

func (m *memStreakStore) Save(_ context.Context, instrument, timeframe string, st model.StreakState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[model.Key(instrument, timeframe)] = st
	return nil
}

func (m *memStreakStore) LoadAll(context.Context) (map[string]model.StreakState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.StreakState, len(m.saved))
	for k, v := range m.saved {
		out[k] = v
	}
	return out, nil
}

func TestRecordPersistsAndResumes(t *testing.T) {
	ctx := context.Background()
	store := newMemStreakStore()

	tr := New(store)
	for _, o := range []model.Outcome{model.StateTP, model.StateTP, model.StateSL} {
		if err := tr.Record(ctx, "BTCUSDT", "5m", o); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if got := tr.Get("BTCUSDT", "5m"); got != -1 {
		t.Fatalf("streak=%d, expected -1", got)
	}

	// Fresh tracker over the same store resumes from the last state.
	tr2 := New(store)
	if err := tr2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := tr2.State("BTCUSDT", "5m")
	if st.Streak != -1 || st.Wins != 2 || st.Losses != 1 {
		t.Fatalf("resumed state=%+v, expected streak=-1 wins=2 losses=1", st)
	}
}

func TestRecordRejectsNonTerminal(t *testing.T) {
	tr := New(ports.NoopStreakStore{})
	if err := tr.Record(context.Background(), "X", "1m", model.StateActive); err == nil {
		t.Fatal("ACTIVE outcome accepted")
	}
}

func TestKeysIndependent(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)
	_ = tr.Record(ctx, "A", "1m", model.StateTP)
	_ = tr.Record(ctx, "A", "5m", model.StateSL)
	if tr.Get("A", "1m") != 1 || tr.Get("A", "5m") != -1 {
		t.Fatalf("keys not independent: 1m=%d 5m=%d", tr.Get("A", "1m"), tr.Get("A", "5m"))
	}
	if tr.Get("A", "15m") != 0 {
		t.Fatalf("unknown key streak=%d, expected 0", tr.Get("A", "15m"))
	}
}

func TestRebuildFromOutcomes(t *testing.T) {
	st := RebuildFromOutcomes([]model.Outcome{
		model.StateSL, model.StateTP, model.StateTP, model.StateTP,
	})
	if st.Streak != 3 || st.Wins != 3 || st.Losses != 1 {
		t.Fatalf("rebuilt state=%+v", st)
	}
}
