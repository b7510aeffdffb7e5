package wrapper

import (
	"sync"

	"github.com/IvanBrykalov/tiercache/cache"
)

// ReadOptimized guards an inner cache with a single sync.RWMutex.
//
// Put and Evict hold the write lock; Get holds the read lock. Base caches
// record an access on every hit, so by default concurrent Gets are also
// serialized by a short access mutex (still excluding writers only through
// the RWMutex). WithSharedReads drops that mutex for inners whose Get is
// safe for concurrent readers.
type ReadOptimized[K comparable, V any] struct {
	rw     sync.RWMutex
	access sync.Mutex
	shared bool
	inner  cache.Cache[K, V]
}

// ReadOption configures NewReadOptimized.
type ReadOption func(*readConfig)

type readConfig struct{ shared bool }

// WithSharedReads lets Gets run in parallel under the read lock.
func WithSharedReads() ReadOption {
	return func(c *readConfig) { c.shared = true }
}

// NewReadOptimized wraps inner. Nil values passed to Put are dropped.
func NewReadOptimized[K comparable, V any](inner cache.Cache[K, V], opts ...ReadOption) (*ReadOptimized[K, V], error) {
	ns, err := NewNullSafe(inner)
	if err != nil {
		return nil, err
	}
	var cfg readConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &ReadOptimized[K, V]{inner: ns, shared: cfg.shared}, nil
}

func (r *ReadOptimized[K, V]) Put(k K, v V) {
	r.rw.Lock()
	defer r.rw.Unlock()
	r.inner.Put(k, v)
}

func (r *ReadOptimized[K, V]) Get(k K) (V, bool) {
	r.rw.RLock()
	defer r.rw.RUnlock()
	if !r.shared {
		r.access.Lock()
		defer r.access.Unlock()
	}
	return r.inner.Get(k)
}

func (r *ReadOptimized[K, V]) Evict(k K) {
	r.rw.Lock()
	defer r.rw.Unlock()
	r.inner.Evict(k)
}

// Len returns the inner cache's size under the read lock.
func (r *ReadOptimized[K, V]) Len() int {
	r.rw.RLock()
	defer r.rw.RUnlock()
	if !r.shared {
		r.access.Lock()
		defer r.access.Unlock()
	}
	l, _ := cache.LenOf(r.inner)
	return l
}

var _ cache.Cache[string, int] = (*ReadOptimized[string, int])(nil)
