// File: internal/checkpoint/sqlite.go
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id  TEXT PRIMARY KEY,
	state      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteStore persists checkpoints to a local SQLite file, keeping the latest
// state per thread.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite checkpoint store requires a path")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing checkpoint schema: %w", err)
	}
	logger.Debug("Checkpoint store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger.Named("checkpoint")}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, threadID string, state []byte) error {
	if threadID == "" {
		return fmt.Errorf("thread ID must not be empty")
	}
	const q = `
INSERT INTO checkpoints (thread_id, state, updated_at) VALUES (?, ?, ?)
ON CONFLICT(thread_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, threadID, state, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("saving checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, threadID string) ([]byte, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM checkpoints WHERE thread_id = ?`, threadID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint for thread %s: %w", threadID, err)
	}
	return state, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("deleting checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
