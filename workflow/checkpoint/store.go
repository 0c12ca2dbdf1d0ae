package checkpoint

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no checkpoint exists for a task.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists encoded workflow state keyed by task id.
// Save overwrites any previous checkpoint of the same task.
type Store interface {
	Save(ctx context.Context, taskID string, payload []byte) error
	Load(ctx context.Context, taskID string) ([]byte, error)
	Delete(ctx context.Context, taskID string) error
	List(ctx context.Context) ([]string, error)
}

// Close releases store's connections when it holds any. A nil store is fine.
func Close(store Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Store types.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeRedis  = "redis"
	TypeSQL    = "sql"
)
