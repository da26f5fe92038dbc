package cache

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Store.Get for a key that was never persisted.
var ErrNotFound = errors.New("cache: key not found")

// Store is a persistent key-value blob store.
type Store interface {
	// Get opens the blob for key. It returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put replaces the blob for key with size bytes read from r.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
}
