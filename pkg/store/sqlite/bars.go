package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"trading-core/internal/model"
)

const upsertBarSQL = `
	INSERT INTO bars (instrument, timeframe, open_time, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(instrument, timeframe, open_time) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume
`

// Upsert writes one closed bar, idempotently.
func (s *Store) Upsert(ctx context.Context, b model.Bar) error {
	_, err := s.DB.ExecContext(ctx, upsertBarSQL,
		b.Instrument, b.Timeframe, b.OpenTime, b.Open, b.High, b.Low, b.Close, b.Volume)
	if err != nil {
		return fmt.Errorf("upsert bar: %w", err)
	}
	return nil
}

// UpsertBatch writes many bars in one transaction; used by backfill.
func (s *Store) UpsertBatch(ctx context.Context, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bar batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBarSQL)
	if err != nil {
		return fmt.Errorf("prepare bar batch: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Instrument, b.Timeframe, b.OpenTime, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("upsert bar %s @%d: %w", b.Instrument, b.OpenTime, err)
		}
	}
	return tx.Commit()
}

// Range returns closed bars with open times in [from, to], ascending.
func (s *Store) Range(ctx context.Context, instrument, timeframe string, from, to int64) ([]model.Bar, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT instrument, timeframe, open_time, open, high, low, close, volume
		FROM bars
		WHERE instrument = ? AND timeframe = ? AND open_time BETWEEN ? AND ?
		ORDER BY open_time ASC
	`, instrument, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

// LastTime returns the newest stored open time for a series.
func (s *Store) LastTime(ctx context.Context, instrument, timeframe string) (int64, bool, error) {
	var last sql.NullInt64
	err := s.DB.QueryRowContext(ctx, `
		SELECT MAX(open_time) FROM bars WHERE instrument = ? AND timeframe = ?
	`, instrument, timeframe).Scan(&last)
	if err != nil {
		return 0, false, fmt.Errorf("query last bar time: %w", err)
	}
	if !last.Valid {
		return 0, false, nil
	}
	return last.Int64, true, nil
}

// Tail returns the newest n bars in ascending order.
func (s *Store) Tail(ctx context.Context, instrument, timeframe string, n int) ([]model.Bar, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT instrument, timeframe, open_time, open, high, low, close, volume
		FROM (
			SELECT * FROM bars
			WHERE instrument = ? AND timeframe = ?
			ORDER BY open_time DESC
			LIMIT ?
		)
		ORDER BY open_time ASC
	`, instrument, timeframe, n)
	if err != nil {
		return nil, fmt.Errorf("query bar tail: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

func scanBars(rows *sql.Rows) ([]model.Bar, error) {
	var bars []model.Bar
	for rows.Next() {
		b := model.Bar{Closed: true}
		if err := rows.Scan(&b.Instrument, &b.Timeframe, &b.OpenTime,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
