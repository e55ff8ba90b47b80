package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trading-core/internal/model"
)

// GetCheckpoint returns the stored checkpoint for a series.
func (s *Store) GetCheckpoint(ctx context.Context, instrument, timeframe string) (model.Checkpoint, bool, error) {
	var cp model.Checkpoint
	var phase string
	err := s.DB.QueryRowContext(ctx, `
		SELECT instrument, timeframe, last_open_time, phase
		FROM checkpoints
		WHERE instrument = ? AND timeframe = ?
	`, instrument, timeframe).Scan(&cp.Instrument, &cp.Timeframe, &cp.LastOpenTime, &phase)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Checkpoint{}, false, nil
	}
	if err != nil {
		return model.Checkpoint{}, false, fmt.Errorf("query checkpoint: %w", err)
	}
	cp.Phase = model.ProcessingPhase(phase)
	return cp, true, nil
}

// SaveCheckpoint upserts a checkpoint row.
func (s *Store) SaveCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO checkpoints (instrument, timeframe, last_open_time, phase, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(instrument, timeframe) DO UPDATE SET
			last_open_time = excluded.last_open_time,
			phase = excluded.phase,
			updated_at = CURRENT_TIMESTAMP
	`, cp.Instrument, cp.Timeframe, cp.LastOpenTime, string(cp.Phase))
	if err != nil {
		return fmt.Errorf("save checkpoint %s %s: %w", cp.Instrument, cp.Timeframe, err)
	}
	return nil
}

// CheckpointStore adapts the Store to the checkpoint port's method names.
type CheckpointStore struct{ *Store }

func (s CheckpointStore) Get(ctx context.Context, instrument, timeframe string) (model.Checkpoint, bool, error) {
	return s.GetCheckpoint(ctx, instrument, timeframe)
}

func (s CheckpointStore) Save(ctx context.Context, cp model.Checkpoint) error {
	return s.SaveCheckpoint(ctx, cp)
}
