package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"trading-core/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ApplyMigrations(s); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBarUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b := model.Bar{
		Instrument: "BTCUSDT", Timeframe: "1m", OpenTime: 60_000,
		Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Closed: true,
	}
	if err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	b.Close = 1.7
	if err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, err := s.Range(ctx, "BTCUSDT", "1m", 0, 120_000)
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows=%d after double upsert, expected 1", len(got))
	}
	if got[0].Close != 1.7 {
		t.Fatalf("close=%v, expected upserted 1.7", got[0].Close)
	}
	if !got[0].Closed {
		t.Fatal("scanned bar not marked closed")
	}
}

func TestBarRangeTailLastTime(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var batch []model.Bar
	for i := int64(1); i <= 10; i++ {
		batch = append(batch, model.Bar{
			Instrument: "ETHUSDT", Timeframe: "5m", OpenTime: i * 300_000,
			Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: float64(i), Closed: true,
		})
	}
	if err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	rng, err := s.Range(ctx, "ETHUSDT", "5m", 2*300_000, 4*300_000)
	if err != nil {
		t.Fatal(err)
	}
	if len(rng) != 3 || rng[0].OpenTime != 2*300_000 || rng[2].OpenTime != 4*300_000 {
		t.Fatalf("range=%v", rng)
	}

	tail, err := s.Tail(ctx, "ETHUSDT", "5m", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 3 || tail[0].OpenTime != 8*300_000 || tail[2].OpenTime != 10*300_000 {
		t.Fatalf("tail=%v", tail)
	}

	last, ok, err := s.LastTime(ctx, "ETHUSDT", "5m")
	if err != nil || !ok || last != 10*300_000 {
		t.Fatalf("last=%d ok=%v err=%v", last, ok, err)
	}

	_, ok, err = s.LastTime(ctx, "ETHUSDT", "1m")
	if err != nil || ok {
		t.Fatalf("empty series reported ok=%v err=%v", ok, err)
	}
}

func TestSignalLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sig := &model.Signal{
		ID:         model.SignalID("BTCUSDT", "5m", 300_000, model.Short),
		Instrument: "BTCUSDT", Timeframe: "5m", Time: 300_000,
		Direction: model.Short, Entry: 102, TP: 91, SL: 190.4,
		ATRAtSignal: 10, StreakAtSignal: 2, State: model.StateActive,
	}
	if err := s.SaveSignal(ctx, sig); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Saving the same deterministic id again must not duplicate.
	if err := s.SaveSignal(ctx, sig); err != nil {
		t.Fatalf("re-Save: %v", err)
	}

	active, err := s.LoadActiveSignals(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active=%d, expected 1", len(active))
	}
	got := active[0]
	if got.Direction != model.Short || got.Entry != 102 || got.StreakAtSignal != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := s.UpdateSignalState(ctx, sig.ID, model.StateSL, 360_000, 190.4); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	active, err = s.LoadActiveSignals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Fatal("closed signal still reported active")
	}

	recent, err := s.RecentSignals(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].State != model.StateSL || recent[0].ClosePrice != 190.4 {
		t.Fatalf("recent=%+v", recent)
	}
}

func TestMAEMFEBatched(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sig := &model.Signal{
		ID: "sig-1", Instrument: "BTCUSDT", Timeframe: "5m", Time: 1,
		Direction: model.Long, Entry: 100, TP: 102, SL: 91, State: model.StateActive,
	}
	if err := s.SaveSignal(ctx, sig); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateSignalMAEMFE(ctx, "sig-1", 0.25, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := s.bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	recent, err := s.RecentSignals(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if recent[0].MAERatio != 0.25 || recent[0].MFERatio != 0.5 {
		t.Fatalf("mae/mfe=%v/%v", recent[0].MAERatio, recent[0].MFERatio)
	}
}

func TestStreakRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	st := model.StreakState{Streak: -2, Wins: 3, Losses: 5}
	if err := s.SaveStreak(ctx, "XRPUSDT", "30m", st); err != nil {
		t.Fatalf("SaveStreak: %v", err)
	}
	st.Streak = -3
	st.Losses = 6
	if err := s.SaveStreak(ctx, "XRPUSDT", "30m", st); err != nil {
		t.Fatalf("SaveStreak update: %v", err)
	}

	all, err := s.LoadAllStreaks(ctx)
	if err != nil {
		t.Fatalf("LoadAllStreaks: %v", err)
	}
	got, ok := all[model.Key("XRPUSDT", "30m")]
	if !ok || got != st {
		t.Fatalf("loaded=%+v ok=%v, expected %+v", got, ok, st)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetCheckpoint(ctx, "BTCUSDT", "1m"); err != nil || ok {
		t.Fatalf("missing checkpoint: ok=%v err=%v", ok, err)
	}

	cp := model.Checkpoint{Instrument: "BTCUSDT", Timeframe: "1m", LastOpenTime: 600_000, Phase: model.PhasePending}
	if err := s.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cp.LastOpenTime = 900_000
	cp.Phase = model.PhaseConfirmed
	if err := s.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, ok, err := s.GetCheckpoint(ctx, "BTCUSDT", "1m")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != cp {
		t.Fatalf("checkpoint=%+v, expected %+v", got, cp)
	}
}
