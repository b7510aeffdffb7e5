// Package strategy orchestrates a cache in front of a backing store.
//
// Four write policies share one read path (cache hit, else store load and
// populate):
//
//   - CacheAside: Write saves to the store, then invalidates the cache.
//   - ReadThrough: Write saves to the store, then updates the cache.
//   - WriteThrough: the store save must succeed before the cache is
//     updated; on failure the cache keeps its previous state.
//   - WriteBehind: Write updates the cache at once and saves to the store
//     asynchronously. Failures surface on Errors().
//
// No strategy retries a failed store operation.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/store"
)

// Strategy coordinates reads and writes between a cache and a store.
type Strategy[K comparable, V any] interface {
	// Read returns the value for k from the cache, loading it from the store
	// on a miss. Store failures degrade to "absent" and are logged.
	Read(ctx context.Context, k K) (V, bool)

	// Write propagates k→v to the cache and the store according to the
	// strategy.
	Write(ctx context.Context, k K, v V) error
}

var (
	// ErrNilCache is returned when a strategy is built without a cache.
	ErrNilCache = errors.New("strategy: nil cache")
	// ErrNilStore is returned when a strategy is built without a store.
	ErrNilStore = errors.New("strategy: nil store")
	// ErrClosed is returned by WriteBehind.Write after Close.
	ErrClosed = errors.New("strategy: write-behind closed")
	// ErrDrainTimeout is returned by WriteBehind.Close when queued saves
	// were abandoned.
	ErrDrainTimeout = errors.New("strategy: write-behind drain timed out")
)

// SaveError reports an asynchronous store save that failed.
type SaveError struct {
	Key any
	Err error
}

func (e *SaveError) Error() string { return fmt.Sprintf("strategy: save %v: %v", e.Key, e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }

// Kind names a strategy for configuration.
type Kind string

const (
	KindCacheAside   Kind = "cache-aside"
	KindReadThrough  Kind = "read-through"
	KindWriteThrough Kind = "write-through"
	KindWriteBehind  Kind = "write-behind"
)

// Kinds lists the strategies in a stable order.
func Kinds() []Kind {
	return []Kind{KindCacheAside, KindReadThrough, KindWriteThrough, KindWriteBehind}
}

// New builds the strategy named by kind; empty means cache-aside.
// Strategies with background work also implement Closer.
func New[K comparable, V any](kind Kind, c cache.Cache[K, V], s store.Store[K, V], opts ...Option) (Strategy[K, V], error) {
	switch kind {
	case KindCacheAside, "":
		return NewCacheAside(c, s, opts...)
	case KindReadThrough:
		return NewReadThrough(c, s, opts...)
	case KindWriteThrough:
		return NewWriteThrough(c, s, opts...)
	case KindWriteBehind:
		return NewWriteBehind(c, s, opts...)
	default:
		return nil, fmt.Errorf("strategy: unknown kind %q", kind)
	}
}

// Closer is implemented by strategies owning background work.
type Closer interface {
	Close(timeout time.Duration) error
}
