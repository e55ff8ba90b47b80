package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"trading-core/internal/model"
)

// SaveSignal upserts a signal row by id, keeping replay idempotent: the same
// deterministic id always lands on the same row.
func (s *Store) SaveSignal(ctx context.Context, sig *model.Signal) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO signals (
			id, instrument, timeframe, signal_time, direction,
			entry, tp, sl, atr_at_signal, streak_at_signal,
			state, mae_ratio, mfe_ratio, close_time, close_price
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			mae_ratio = excluded.mae_ratio,
			mfe_ratio = excluded.mfe_ratio
	`, sig.ID, sig.Instrument, sig.Timeframe, sig.Time, string(sig.Direction),
		sig.Entry, sig.TP, sig.SL, sig.ATRAtSignal, sig.StreakAtSignal,
		string(sig.State), sig.MAERatio, sig.MFERatio,
		nullableInt64(sig.CloseTime), nullableFloat(sig.ClosePrice))
	if err != nil {
		return fmt.Errorf("save signal %s: %w", sig.ID, err)
	}
	return nil
}

// UpdateSignalState marks a signal closed.
func (s *Store) UpdateSignalState(ctx context.Context, id string, state model.SignalState, closeTime int64, closePrice float64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE signals SET state = ?, close_time = ?, close_price = ? WHERE id = ?
	`, string(state), closeTime, closePrice, id)
	if err != nil {
		return fmt.Errorf("update signal state %s: %w", id, err)
	}
	return nil
}

// UpdateSignalMAEMFE records the latest excursion ratios. Writes go through
// the batch writer: MAE updates are advisory and high-frequency, so
// they are flushed in the background instead of per call.
func (s *Store) UpdateSignalMAEMFE(_ context.Context, id string, mae, mfe float64) error {
	s.bw.WriteQuery(`UPDATE signals SET mae_ratio = ?, mfe_ratio = ? WHERE id = ?`, mae, mfe, id)
	return nil
}

// LoadActiveSignals returns every signal still in the ACTIVE state.
func (s *Store) LoadActiveSignals(ctx context.Context) ([]model.Signal, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, instrument, timeframe, signal_time, direction,
		       entry, tp, sl, atr_at_signal, streak_at_signal,
		       state, mae_ratio, mfe_ratio,
		       COALESCE(close_time, 0), COALESCE(close_price, 0)
		FROM signals
		WHERE state = 'ACTIVE'
		ORDER BY signal_time ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query active signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// RecentSignals returns the newest signals regardless of state, for
// the read-only API and dashboard.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]model.Signal, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, instrument, timeframe, signal_time, direction,
		       entry, tp, sl, atr_at_signal, streak_at_signal,
		       state, mae_ratio, mfe_ratio,
		       COALESCE(close_time, 0), COALESCE(close_price, 0)
		FROM signals
		ORDER BY signal_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

func scanSignals(rows *sql.Rows) ([]model.Signal, error) {
	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var direction, state string
		if err := rows.Scan(&sig.ID, &sig.Instrument, &sig.Timeframe, &sig.Time, &direction,
			&sig.Entry, &sig.TP, &sig.SL, &sig.ATRAtSignal, &sig.StreakAtSignal,
			&state, &sig.MAERatio, &sig.MFERatio, &sig.CloseTime, &sig.ClosePrice); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Direction = model.Direction(direction)
		sig.State = model.SignalState(state)
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

// SignalStore adapts the Store to the signal port's method names.
type SignalStore struct{ *Store }

func (s SignalStore) Save(ctx context.Context, sig *model.Signal) error {
	return s.SaveSignal(ctx, sig)
}

func (s SignalStore) UpdateState(ctx context.Context, id string, state model.SignalState, closeTime int64, closePrice float64) error {
	return s.UpdateSignalState(ctx, id, state, closeTime, closePrice)
}

func (s SignalStore) UpdateMAEMFE(ctx context.Context, id string, mae, mfe float64) error {
	return s.UpdateSignalMAEMFE(ctx, id, mae, mfe)
}

func (s SignalStore) LoadActive(ctx context.Context) ([]model.Signal, error) {
	return s.LoadActiveSignals(ctx)
}
