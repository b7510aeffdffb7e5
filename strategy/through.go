package strategy

import (
	"context"
	"fmt"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/store"
)

// ReadThrough populates the cache from the store on misses and refreshes it
// after every successful store write.
type ReadThrough[K comparable, V any] struct {
	*base[K, V]
}

// NewReadThrough builds a read-through strategy.
func NewReadThrough[K comparable, V any](c cache.Cache[K, V], s store.Store[K, V], opts ...Option) (*ReadThrough[K, V], error) {
	b, err := newBase(c, s, "read-through", opts)
	if err != nil {
		return nil, err
	}
	return &ReadThrough[K, V]{base: b}, nil
}

// Write saves k→v and then puts it into the cache.
func (s *ReadThrough[K, V]) Write(ctx context.Context, k K, v V) error {
	if err := s.save(ctx, k, v); err != nil {
		return fmt.Errorf("strategy: read-through write: %w", err)
	}
	s.cache.Put(k, v)
	return nil
}

// WriteThrough writes synchronously to both tiers, store first: the cache
// never holds a value the store rejected.
type WriteThrough[K comparable, V any] struct {
	*base[K, V]
}

// NewWriteThrough builds a write-through strategy.
func NewWriteThrough[K comparable, V any](c cache.Cache[K, V], s store.Store[K, V], opts ...Option) (*WriteThrough[K, V], error) {
	b, err := newBase(c, s, "write-through", opts)
	if err != nil {
		return nil, err
	}
	return &WriteThrough[K, V]{base: b}, nil
}

// Write saves k→v and, only on success, puts it into the cache.
func (s *WriteThrough[K, V]) Write(ctx context.Context, k K, v V) error {
	if err := s.save(ctx, k, v); err != nil {
		return fmt.Errorf("strategy: write-through write: %w", err)
	}
	s.cache.Put(k, v)
	return nil
}

var (
	_ Strategy[string, int] = (*ReadThrough[string, int])(nil)
	_ Strategy[string, int] = (*WriteThrough[string, int])(nil)
)
