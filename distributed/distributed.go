// Package distributed defines the contract of a cache shared between
// processes, such as a Redis deployment, plus the value codecs its adapters
// use.
//
// A distributed cache is also a plain cache.Cache, so the wrappers and the
// caching strategies work over it unchanged. The base Put/Get/Evict cannot
// report errors; adapters log failures there and Get degrades to a miss.
// The context-aware methods return errors.
package distributed

import (
	"context"
	"errors"
	"time"

	"github.com/IvanBrykalov/tiercache/cache"
)

// ErrInvalidLease is returned by AcquireLock for a non-positive timeout; a
// lock without expiry would outlive a crashed holder.
var ErrInvalidLease = errors.New("distributed: lock timeout must be > 0")

// Item is a value with an optional relative TTL (0 = no expiry).
type Item[V any] struct {
	Value V
	TTL   time.Duration
}

// Cache is a cache shared between processes.
type Cache[K comparable, V any] interface {
	cache.Cache[K, V]

	// PutWithTTL stores k→v expiring after ttl; ttl <= 0 means no expiry.
	PutWithTTL(ctx context.Context, k K, v V, ttl time.Duration) error

	// AcquireLock tries to take the advisory lock for k, held for at most
	// timeout. It returns false without error when another holder owns it,
	// and ErrInvalidLease when timeout <= 0.
	AcquireLock(ctx context.Context, k K, timeout time.Duration) (bool, error)

	// ReleaseLock releases a lock this instance acquired for k. It returns
	// false when no lock held by this instance was found.
	ReleaseLock(ctx context.Context, k K) (bool, error)

	// Clear removes every entry owned by this cache.
	Clear(ctx context.Context) error

	// PutAll stores all items in one round trip where possible.
	PutAll(ctx context.Context, items map[K]Item[V]) error

	// GetAll returns the values found for keys; misses are absent from the map.
	GetAll(ctx context.Context, keys []K) (map[K]V, error)
}
