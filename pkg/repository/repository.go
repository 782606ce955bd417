package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// ErrNotFound is returned by KV.Get when the key has never been written
var ErrNotFound = goerr.New("key not found")

// KV is the durable key-value storage behind the journal. Values are opaque
// bytes; the journal keeps its whole record list under a single key.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key
	Set(ctx context.Context, key string, value []byte) error
}
