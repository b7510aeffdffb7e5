// Package store defines the backing-store contract the caching strategies
// read from and write to.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Store is the durable source of truth behind a cache.
// Implementations must be safe for concurrent use.
type Store[K comparable, V any] interface {
	// Load returns the value for k, or ErrNotFound (possibly wrapped).
	Load(ctx context.Context, k K) (V, error)

	// Save persists k→v, overwriting any previous value.
	Save(ctx context.Context, k K, v V) error
}

// Funcs adapts a pair of functions to Store.
type Funcs[K comparable, V any] struct {
	LoadFunc func(ctx context.Context, k K) (V, error)
	SaveFunc func(ctx context.Context, k K, v V) error
}

// Load calls f.LoadFunc, reporting ErrNotFound when it is nil.
func (f Funcs[K, V]) Load(ctx context.Context, k K) (V, error) {
	if f.LoadFunc == nil {
		var zero V
		return zero, ErrNotFound
	}
	return f.LoadFunc(ctx, k)
}

// Save calls f.SaveFunc; a nil SaveFunc accepts and discards the write.
func (f Funcs[K, V]) Save(ctx context.Context, k K, v V) error {
	if f.SaveFunc == nil {
		return nil
	}
	return f.SaveFunc(ctx, k, v)
}

var _ Store[string, int] = Funcs[string, int]{}
