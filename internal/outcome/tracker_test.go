package outcome

import (
	"context"
	"math"
	"sync"
	"testing"

	"trading-core/internal/model"
	"trading-core/internal/ports"
)

// recordingStore captures state updates for assertions.
type recordingStore struct {
	ports.NoopSignalStore
	mu      sync.Mutex
	states  map[string]model.SignalState
	maeMfe  map[string][2]float64
	actives []model.Signal
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		states: make(map[string]model.SignalState),
		maeMfe: make(map[string][2]float64),
	}
}

func (r *recordingStore) UpdateState(_ context.Context, id string, state model.SignalState, _ int64, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[id] = state
	return nil
}

func (r *recordingStore) UpdateMAEMFE(_ context.Context, id string, mae, mfe float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maeMfe[id] = [2]float64{mae, mfe}
	return nil
}

func (r *recordingStore) LoadActive(context.Context) ([]model.Signal, error) {
	return r.actives, nil
}

func longSignal() model.Signal {
	return model.Signal{
		ID: "sig-long", Instrument: "BTCUSDT", Timeframe: "5m",
		Direction: model.Long, Entry: 100, TP: 102, SL: 91.16,
		State: model.StateActive,
	}
}

func shortSignal() model.Signal {
	return model.Signal{
		ID: "sig-short", Instrument: "ETHUSDT", Timeframe: "15m",
		Direction: model.Short, Entry: 100, TP: 98, SL: 108.84,
		State: model.StateActive,
	}
}

func TestTickTPExact(t *testing.T) {
	tr := New(newRecordingStore(), nil)
	tr.Add(longSignal())

	var got []model.Outcome
	tr.OnOutcome(func(_ model.Signal, o model.Outcome) { got = append(got, o) })

	// Price exactly at TP triggers.
	tr.OnTrade(context.Background(), model.Trade{Instrument: "BTCUSDT", Price: 102, Time: 1000})
	if len(got) != 1 || got[0] != model.StateTP {
		t.Fatalf("outcomes=%v, expected one TP", got)
	}
	if tr.ActiveCount() != 0 {
		t.Fatal("signal still active after TP")
	}
}

func TestTickSLClosesAtLevel(t *testing.T) {
	store := newRecordingStore()
	tr := New(store, nil)
	tr.Add(longSignal())

	var closed model.Signal
	tr.OnOutcome(func(s model.Signal, _ model.Outcome) { closed = s })

	tr.OnTrade(context.Background(), model.Trade{Instrument: "BTCUSDT", Price: 90, Time: 2000})
	if closed.State != model.StateSL {
		t.Fatalf("state=%s, expected SL", closed.State)
	}
	// Closure prices at the SL level, not the trade print.
	if closed.ClosePrice != 91.16 {
		t.Fatalf("close_price=%v, expected 91.16", closed.ClosePrice)
	}
	if store.states["sig-long"] != model.StateSL {
		t.Fatal("store not updated with SL state")
	}
}

func TestShortMirror(t *testing.T) {
	tr := New(nil, nil)
	tr.Add(shortSignal())

	var got model.Outcome
	tr.OnOutcome(func(_ model.Signal, o model.Outcome) { got = o })

	tr.OnTrade(context.Background(), model.Trade{Instrument: "ETHUSDT", Price: 97.5, Time: 1})
	if got != model.StateTP {
		t.Fatalf("outcome=%s, expected TP for short at 97.5", got)
	}
}

func TestBarPathPessimisticRule(t *testing.T) {
	// Spec scenario: LONG entry=100 tp=102 sl=91.16; bar high=103
	// low=91 spans both levels and must resolve SL.
	tr := New(nil, nil)
	tr.Add(longSignal())

	var got model.Outcome
	tr.OnOutcome(func(_ model.Signal, o model.Outcome) { got = o })

	tr.OnBar(context.Background(), model.Bar{
		Instrument: "BTCUSDT", Timeframe: "1m", OpenTime: 60_000,
		Open: 100, High: 103, Low: 91, Close: 95, Volume: 1, Closed: true,
	})
	if got != model.StateSL {
		t.Fatalf("outcome=%s, expected SL by pessimistic rule", got)
	}
}

func TestBarPathTPOnly(t *testing.T) {
	tr := New(nil, nil)
	tr.Add(longSignal())

	var got model.Outcome
	tr.OnOutcome(func(_ model.Signal, o model.Outcome) { got = o })

	// high exactly at TP hits.
	tr.OnBar(context.Background(), model.Bar{
		Instrument: "BTCUSDT", Timeframe: "1m", OpenTime: 60_000,
		Open: 100, High: 102, Low: 99, Close: 101, Volume: 1, Closed: true,
	})
	if got != model.StateTP {
		t.Fatalf("outcome=%s, expected TP at exact touch", got)
	}
}

func TestOutcomeExactlyOnce(t *testing.T) {
	tr := New(nil, nil)
	tr.Add(longSignal())

	calls := 0
	tr.OnOutcome(func(model.Signal, model.Outcome) { calls++ })

	ctx := context.Background()
	tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 102, Time: 1})
	tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 102, Time: 2})
	tr.OnBar(ctx, model.Bar{
		Instrument: "BTCUSDT", Timeframe: "1m", OpenTime: 60_000,
		Open: 102, High: 103, Low: 101, Close: 102, Volume: 1, Closed: true,
	})
	if calls != 1 {
		t.Fatalf("observer called %d times, expected exactly once", calls)
	}
}

func TestMAEMFERatios(t *testing.T) {
	tr := New(nil, nil)
	tr.Add(longSignal()) // risk 8.84, reward 2

	ctx := context.Background()
	// Adverse move to 95.58: adverse 4.42 -> MAE 0.5.
	tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 95.58, Time: 1})
	// Favorable move to 101: favorable 1 -> MFE 0.5.
	tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 101, Time: 2})

	active := tr.Active()
	if len(active) != 1 {
		t.Fatalf("active=%d", len(active))
	}
	if math.Abs(active[0].MAERatio-0.5) > 1e-9 {
		t.Fatalf("mae=%v, expected 0.5", active[0].MAERatio)
	}
	if math.Abs(active[0].MFERatio-0.5) > 1e-9 {
		t.Fatalf("mfe=%v, expected 0.5", active[0].MFERatio)
	}
}

func TestMAEUpdatesThrottled(t *testing.T) {
	var mu sync.Mutex
	count := 0
	bus := busFunc(func(kind string, _ any) {
		if kind == ports.EventSignalMAEUpdated {
			mu.Lock()
			count++
			mu.Unlock()
		}
	})

	tr := New(nil, bus)
	tr.Add(longSignal())

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 99, Time: int64(i)})
	}
	mu.Lock()
	defer mu.Unlock()
	// Burst of one token: at most one publish within the same second.
	if count != 1 {
		t.Fatalf("published %d MAE updates in a burst, expected 1", count)
	}
}

type busFunc func(kind string, payload any)

func (f busFunc) Publish(kind string, payload any) { f(kind, payload) }

func TestLoadActive(t *testing.T) {
	store := newRecordingStore()
	store.actives = []model.Signal{longSignal(), shortSignal()}

	tr := New(store, nil)
	if err := tr.LoadActive(context.Background()); err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if tr.ActiveCount() != 2 {
		t.Fatalf("active=%d, expected 2", tr.ActiveCount())
	}
}

func TestSummarize(t *testing.T) {
	signals := []model.Signal{
		{Instrument: "BTCUSDT", Timeframe: "5m", Direction: model.Long, State: model.StateTP, MAERatio: 0.2, MFERatio: 1.0},
		{Instrument: "BTCUSDT", Timeframe: "5m", Direction: model.Short, State: model.StateTP, MAERatio: 0.4, MFERatio: 1.0},
		{Instrument: "ETHUSDT", Timeframe: "15m", Direction: model.Long, State: model.StateSL, MAERatio: 1.0, MFERatio: 0.3},
		{Instrument: "ETHUSDT", Timeframe: "15m", Direction: model.Long, State: model.StateActive},
	}

	sum := Summarize(signals)
	if sum.Overall.Total != 4 || sum.Overall.Wins != 2 || sum.Overall.Losses != 1 || sum.Overall.Active != 1 {
		t.Fatalf("overall=%+v", sum.Overall)
	}
	if got := sum.Overall.WinRate(); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Fatalf("win rate=%v", got)
	}
	// Net R = 2*1 - 1*4.42.
	if got := sum.Overall.NetR(); math.Abs(got-(-2.42)) > 1e-9 {
		t.Fatalf("net R=%v, expected -2.42", got)
	}
	if sum.ByInstrument["BTCUSDT"].Wins != 2 {
		t.Fatalf("by instrument=%+v", sum.ByInstrument)
	}
	if math.Abs(sum.AvgMAE-(0.2+0.4+1.0)/3) > 1e-12 {
		t.Fatalf("avg mae=%v", sum.AvgMAE)
	}
}
