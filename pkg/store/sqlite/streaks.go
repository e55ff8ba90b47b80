package sqlite

import (
	"context"
	"fmt"

	"trading-core/internal/model"
)

// SaveStreak upserts one key's streak state.
func (s *Store) SaveStreak(ctx context.Context, instrument, timeframe string, st model.StreakState) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO streaks (instrument, timeframe, streak, wins, losses, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(instrument, timeframe) DO UPDATE SET
			streak = excluded.streak,
			wins = excluded.wins,
			losses = excluded.losses,
			updated_at = CURRENT_TIMESTAMP
	`, instrument, timeframe, st.Streak, st.Wins, st.Losses)
	if err != nil {
		return fmt.Errorf("save streak %s %s: %w", instrument, timeframe, err)
	}
	return nil
}

// LoadAllStreaks returns every persisted streak state keyed by
// model.Key(instrument, timeframe).
func (s *Store) LoadAllStreaks(ctx context.Context) (map[string]model.StreakState, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT instrument, timeframe, streak, wins, losses FROM streaks
	`)
	if err != nil {
		return nil, fmt.Errorf("query streaks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]model.StreakState)
	for rows.Next() {
		var inst, tf string
		var st model.StreakState
		if err := rows.Scan(&inst, &tf, &st.Streak, &st.Wins, &st.Losses); err != nil {
			return nil, fmt.Errorf("scan streak: %w", err)
		}
		out[model.Key(inst, tf)] = st
	}
	return out, rows.Err()
}

// StreakStore adapts the Store to the streak port's method names.
type StreakStore struct{ *Store }

func (s StreakStore) Save(ctx context.Context, instrument, timeframe string, st model.StreakState) error {
	return s.SaveStreak(ctx, instrument, timeframe, st)
}

func (s StreakStore) LoadAll(ctx context.Context) (map[string]model.StreakState, error) {
	return s.LoadAllStreaks(ctx)
}
