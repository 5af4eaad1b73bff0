// File: internal/checkpoint/checkpoint.go
// Description: Conversation checkpointing. A Store persists serialized agent
// state keyed by thread ID so that multi-turn sessions resume where they left
// off. Two backends exist: an in-process map for single-run use, and a SQLite
// file for persistence across process restarts.

package checkpoint

import (
	"context"
	"errors"

	"github.com/q0rren/attendant/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Load when no checkpoint exists for a thread.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists opaque state blobs per conversation thread.
type Store interface {
	// Save overwrites the checkpoint for the given thread.
	Save(ctx context.Context, threadID string, state []byte) error
	// Load returns the latest checkpoint, or ErrNotFound.
	Load(ctx context.Context, threadID string) ([]byte, error)
	// Delete removes a thread's checkpoint. Missing threads are not an error.
	Delete(ctx context.Context, threadID string) error
	// Close releases backend resources.
	Close() error
}

// NewStore selects a backend from configuration.
func NewStore(cfg config.MemoryConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.MemoryBackendSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	case config.MemoryBackendInProcess, "":
		return NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown memory backend: " + string(cfg.Backend))
	}
}
