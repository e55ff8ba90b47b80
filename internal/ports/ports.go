// Package ports defines the collaborator contracts the core depends
// on. External layers (sqlite store, Binance client, API surface)
// implement these; the core never imports them directly.
package ports

import (
	"context"

	"trading-core/internal/model"
)

// BarStore persists OHLCV bars, unique by (instrument, timeframe,
// open_time). Upsert must be idempotent; replay relies on it.
type BarStore interface {
	Upsert(ctx context.Context, bar model.Bar) error
	UpsertBatch(ctx context.Context, bars []model.Bar) error
	Range(ctx context.Context, instrument, timeframe string, from, to int64) ([]model.Bar, error)
	// LastTime returns the newest stored open time; ok=false when the
	// series is empty.
	LastTime(ctx context.Context, instrument, timeframe string) (int64, bool, error)
	// Tail returns the newest n bars in ascending open-time order.
	Tail(ctx context.Context, instrument, timeframe string, n int) ([]model.Bar, error)
}

// SignalStore persists signals, unique by id.
type SignalStore interface {
	Save(ctx context.Context, s *model.Signal) error
	UpdateState(ctx context.Context, id string, state model.SignalState, closeTime int64, closePrice float64) error
	UpdateMAEMFE(ctx context.Context, id string, mae, mfe float64) error
	LoadActive(ctx context.Context) ([]model.Signal, error)
}

// StreakStore persists per-key streak state, keyed by
// model.Key(instrument, timeframe).
type StreakStore interface {
	Save(ctx context.Context, instrument, timeframe string, st model.StreakState) error
	LoadAll(ctx context.Context) (map[string]model.StreakState, error)
}

// CheckpointStore persists the ingestion pipeline's per-series
// processing checkpoint.
type CheckpointStore interface {
	Get(ctx context.Context, instrument, timeframe string) (model.Checkpoint, bool, error)
	Save(ctx context.Context, cp model.Checkpoint) error
}

// BarHandler receives one bar from a stream or replay.
type BarHandler func(model.Bar)

// TradeHandler receives one trade print from a stream.
type TradeHandler func(model.Trade)

// ExchangeSource is the upstream market-data provider: live 1m bar and
// trade streams plus REST backfill.
type ExchangeSource interface {
	// SubscribeBars1m starts the 1m bar stream for every instrument and
	// invokes h for each arrival. The returned stop function closes the
	// subscription.
	SubscribeBars1m(ctx context.Context, instruments []string, h BarHandler) (stop func(), err error)
	SubscribeTrades(ctx context.Context, instruments []string, h TradeHandler) (stop func(), err error)
	// FetchBars returns closed 1m bars with open times in [from, to].
	FetchBars(ctx context.Context, instrument string, from, to int64) ([]model.Bar, error)
}

// Event kinds published on the observer bus.
const (
	EventSignalEmitted    = "signal.emitted"
	EventSignalMAEUpdated = "signal.mae_updated"
	EventSignalClosed     = "signal.closed"
	EventCoreFatal        = "core.fatal"
)

// ObserverBus fans engine events out to downstream consumers (API,
// dashboard). Publish must never block the core.
type ObserverBus interface {
	Publish(kind string, payload any)
}

// MAEUpdate is the payload of EventSignalMAEUpdated.
type MAEUpdate struct {
	ID       string  `json:"id"`
	MAERatio float64 `json:"mae_ratio"`
	MFERatio float64 `json:"mfe_ratio"`
}

// SignalClosed is the payload of EventSignalClosed.
type SignalClosed struct {
	ID         string            `json:"id"`
	State      model.SignalState `json:"state"`
	CloseTime  int64             `json:"close_time"`
	ClosePrice float64           `json:"close_price"`
}

// FatalEvent is the payload of EventCoreFatal, published when an engine
// invariant is violated and the core stops.
type FatalEvent struct {
	Reason string `json:"reason"`
}
