package ports

import (
	"context"

	"trading-core/internal/model"
)

// No-op implementations back tests and backtests that exercise the
// core without real persistence or a live exchange.

// NoopBarStore discards bars and returns empty ranges.
type NoopBarStore struct{}

func (NoopBarStore) Upsert(context.Context, model.Bar) error        { return nil }
func (NoopBarStore) UpsertBatch(context.Context, []model.Bar) error { return nil }
func (NoopBarStore) Range(context.Context, string, string, int64, int64) ([]model.Bar, error) {
	return nil, nil
}
func (NoopBarStore) LastTime(context.Context, string, string) (int64, bool, error) {
	return 0, false, nil
}
func (NoopBarStore) Tail(context.Context, string, string, int) ([]model.Bar, error) {
	return nil, nil
}

// NoopSignalStore accepts every write and reports no active signals.
type NoopSignalStore struct{}

func (NoopSignalStore) Save(context.Context, *model.Signal) error { return nil }
func (NoopSignalStore) UpdateState(context.Context, string, model.SignalState, int64, float64) error {
	return nil
}
func (NoopSignalStore) UpdateMAEMFE(context.Context, string, float64, float64) error { return nil }
func (NoopSignalStore) LoadActive(context.Context) ([]model.Signal, error)           { return nil, nil }

// NoopStreakStore accepts every write and loads nothing.
type NoopStreakStore struct{}

func (NoopStreakStore) Save(context.Context, string, string, model.StreakState) error { return nil }
func (NoopStreakStore) LoadAll(context.Context) (map[string]model.StreakState, error) {
	return map[string]model.StreakState{}, nil
}

// NoopCheckpointStore never remembers a checkpoint.
type NoopCheckpointStore struct{}

func (NoopCheckpointStore) Get(context.Context, string, string) (model.Checkpoint, bool, error) {
	return model.Checkpoint{}, false, nil
}
func (NoopCheckpointStore) Save(context.Context, model.Checkpoint) error { return nil }

// NoopBus drops every event.
type NoopBus struct{}

func (NoopBus) Publish(string, any) {}
