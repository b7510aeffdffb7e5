// Package memstore provides an in-memory store implementation for tests,
// benchmarks and examples.
package memstore

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/tiercache/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store[string, int] = (*Store[string, int])(nil)

// Store is a concurrency-safe map-backed store with optional failure
// injection hooks.
type Store[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V

	hookMu   sync.RWMutex
	loadHook func(ctx context.Context, k K) error
	saveHook func(ctx context.Context, k K, v V) error

	loads atomic.Int64
	saves atomic.Int64
}

// New creates an empty in-memory store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{data: make(map[K]V)}
}

// Seed sets k→v directly, bypassing hooks and counters (for test setup).
func (s *Store[K, V]) Seed(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
}

// OnLoad installs a hook run before every Load; a non-nil error fails the
// Load. The hook may block. Pass nil to remove it.
func (s *Store[K, V]) OnLoad(h func(ctx context.Context, k K) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.loadHook = h
}

// OnSave installs a hook run before every Save; a non-nil error fails the
// Save and leaves the stored value unchanged. Pass nil to remove it.
func (s *Store[K, V]) OnSave(h func(ctx context.Context, k K, v V) error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.saveHook = h
}

// Load returns the stored value or store.ErrNotFound.
func (s *Store[K, V]) Load(ctx context.Context, k K) (V, error) {
	s.loads.Add(1)
	var zero V
	if h := s.hooks().load; h != nil {
		if err := h(ctx, k); err != nil {
			return zero, err
		}
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[k]
	if !ok {
		return zero, store.ErrNotFound
	}
	return v, nil
}

// Save stores k→v.
func (s *Store[K, V]) Save(ctx context.Context, k K, v V) error {
	s.saves.Add(1)
	if h := s.hooks().save; h != nil {
		if err := h(ctx, k, v); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
	return nil
}

// Value returns the stored value without touching hooks or counters.
func (s *Store[K, V]) Value(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[k]
	return v, ok
}

// Snapshot returns a copy of the stored data.
func (s *Store[K, V]) Snapshot() map[K]V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Loads returns the number of Load calls so far.
func (s *Store[K, V]) Loads() int64 { return s.loads.Load() }

// Saves returns the number of Save calls so far.
func (s *Store[K, V]) Saves() int64 { return s.saves.Load() }

type hookSet[K comparable, V any] struct {
	load func(ctx context.Context, k K) error
	save func(ctx context.Context, k K, v V) error
}

func (s *Store[K, V]) hooks() hookSet[K, V] {
	s.hookMu.RLock()
	defer s.hookMu.RUnlock()
	return hookSet[K, V]{load: s.loadHook, save: s.saveHook}
}
