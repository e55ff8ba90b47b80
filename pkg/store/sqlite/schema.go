package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS bars (
    instrument TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    open_time INTEGER NOT NULL,
    open REAL NOT NULL,
    high REAL NOT NULL,
    low REAL NOT NULL,
    close REAL NOT NULL,
    volume REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (instrument, timeframe, open_time)
);

CREATE TABLE IF NOT EXISTS signals (
    id TEXT PRIMARY KEY,
    instrument TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    signal_time INTEGER NOT NULL,
    direction TEXT NOT NULL,
    entry REAL NOT NULL,
    tp REAL NOT NULL,
    sl REAL NOT NULL,
    atr_at_signal REAL DEFAULT 0,
    streak_at_signal INTEGER DEFAULT 0,
    state TEXT NOT NULL DEFAULT 'ACTIVE',
    mae_ratio REAL DEFAULT 0,
    mfe_ratio REAL DEFAULT 0,
    close_time INTEGER,
    close_price REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_signals_state ON signals(state);
CREATE INDEX IF NOT EXISTS idx_signals_instrument ON signals(instrument, timeframe);

CREATE TABLE IF NOT EXISTS streaks (
    instrument TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    streak INTEGER NOT NULL DEFAULT 0,
    wins INTEGER NOT NULL DEFAULT 0,
    losses INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (instrument, timeframe)
);

CREATE TABLE IF NOT EXISTS checkpoints (
    instrument TEXT NOT NULL,
    timeframe TEXT NOT NULL,
    last_open_time INTEGER NOT NULL,
    phase TEXT NOT NULL DEFAULT 'confirmed',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (instrument, timeframe)
);
`

// ApplyMigrations bootstraps the schema; keep lightweight for fast startup.
func ApplyMigrations(s *Store) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("store is not initialized")
	}
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Lightweight, idempotent migrations for older DB files.
	if err := ensureColumn(s.DB, "signals", "mae_ratio", "REAL DEFAULT 0"); err != nil {
		return err
	}
	if err := ensureColumn(s.DB, "signals", "mfe_ratio", "REAL DEFAULT 0"); err != nil {
		return err
	}
	if err := ensureColumn(s.DB, "signals", "streak_at_signal", "INTEGER DEFAULT 0"); err != nil {
		return err
	}
	if err := ensureColumn(s.DB, "checkpoints", "phase", "TEXT NOT NULL DEFAULT 'confirmed'"); err != nil {
		return err
	}

	return nil
}

// ensureColumn adds a column if it does not already exist.
func ensureColumn(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := db.Exec(alter); err != nil {
		return fmt.Errorf("alter table %s add column %s: %w", table, column, err)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
