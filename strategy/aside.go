package strategy

import (
	"context"
	"fmt"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/store"
)

// CacheAside keeps the store authoritative: writes go to the store and
// invalidate the cached copy, so the next Read reloads it.
type CacheAside[K comparable, V any] struct {
	*base[K, V]
}

// NewCacheAside builds a cache-aside strategy.
func NewCacheAside[K comparable, V any](c cache.Cache[K, V], s store.Store[K, V], opts ...Option) (*CacheAside[K, V], error) {
	b, err := newBase(c, s, "cache-aside", opts)
	if err != nil {
		return nil, err
	}
	return &CacheAside[K, V]{base: b}, nil
}

// Write saves k→v and then evicts k from the cache. A failed save leaves
// the cache untouched.
func (s *CacheAside[K, V]) Write(ctx context.Context, k K, v V) error {
	if err := s.save(ctx, k, v); err != nil {
		return fmt.Errorf("strategy: cache-aside write: %w", err)
	}
	s.cache.Evict(k)
	return nil
}

var _ Strategy[string, int] = (*CacheAside[string, int])(nil)
