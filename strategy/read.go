package strategy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/internal/singleflight"
	"github.com/IvanBrykalov/tiercache/store"
)

// base holds what every strategy shares: the cache, the store, options and
// the read path.
type base[K comparable, V any] struct {
	cache cache.Cache[K, V]
	store store.Store[K, V]
	opt   options
	log   *zap.Logger
	sf    singleflight.Group[K, V]
}

func newBase[K comparable, V any](c cache.Cache[K, V], s store.Store[K, V], name string, opts []Option) (*base[K, V], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if s == nil {
		return nil, ErrNilStore
	}
	o := buildOptions(opts)
	return &base[K, V]{
		cache: c,
		store: s,
		opt:   o,
		log:   o.logger.Named(name),
	}, nil
}

// Read returns a cached value or loads, caches and returns it from the store.
func (b *base[K, V]) Read(ctx context.Context, k K) (V, bool) {
	if v, ok := b.cache.Get(k); ok {
		return v, true
	}
	if !b.opt.coalesce {
		return b.load(ctx, k)
	}

	v, ok, err, shared := b.sf.Do(ctx, k, func() (V, bool, error) {
		v, ok := b.load(ctx, k)
		return v, ok, nil
	})
	if err != nil {
		b.log.Debug("coalesced load abandoned", zap.Any("key", k), zap.Error(err))
		return v, false
	}
	if shared {
		b.log.Debug("coalesced load", zap.Any("key", k))
	}
	return v, ok
}

// load fetches k from the store and populates the cache on success.
func (b *base[K, V]) load(ctx context.Context, k K) (V, bool) {
	start := time.Now()
	v, err := b.store.Load(ctx, k)
	switch {
	case errors.Is(err, store.ErrNotFound):
		b.opt.metrics.Load(time.Since(start), false)
		b.log.Debug("not found in store", zap.Any("key", k))
		var zero V
		return zero, false
	case err != nil:
		b.opt.metrics.StoreError(OpLoad)
		b.log.Error("store load failed", zap.Any("key", k), zap.Error(err))
		var zero V
		return zero, false
	}
	b.opt.metrics.Load(time.Since(start), true)
	b.cache.Put(k, v)
	return v, true
}

// save writes through to the store, logging and counting failures.
func (b *base[K, V]) save(ctx context.Context, k K, v V) error {
	if err := b.store.Save(ctx, k, v); err != nil {
		b.opt.metrics.StoreError(OpSave)
		b.log.Error("store save failed", zap.Any("key", k), zap.Error(err))
		return err
	}
	return nil
}
