// Package sqlite implements the core's persistence ports (bars,
// signals, streaks, checkpoints) on an embedded SQLite database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store wraps the SQL handle for easier swapping/testing. It
// implements every persistence port of the core.
type Store struct {
	DB *sql.DB
	bw *BatchWriter
}

// New opens (and creates if needed) the SQLite database at path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{DB: db}
	s.bw = NewBatchWriter(db, 50, 500*time.Millisecond)
	return s, nil
}

// Close flushes pending batched writes and releases the DB handle.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	if s.bw != nil {
		_ = s.bw.Close()
	}
	return s.DB.Close()
}
