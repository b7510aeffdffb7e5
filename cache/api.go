package cache

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCapacity is returned by constructors when Capacity <= 0.
	ErrInvalidCapacity = errors.New("cache: capacity must be > 0")
	// ErrShutdownTimeout is returned by TTL.Close when the sweeper did not
	// exit within Options.ShutdownTimeout.
	ErrShutdownTimeout = errors.New("cache: sweeper did not stop in time")
)

// Cache is the minimal key/value contract shared by the bounded caches,
// the concurrency wrappers and the distributed backends.
//
// Memory does not synchronize; see package wrapper for thread-safe
// decorators.
type Cache[K comparable, V any] interface {
	// Put inserts or overwrites k→v and records the access with the policy.
	// Inserting a new key at full capacity evicts exactly one victim first.
	Put(k K, v V)

	// Get returns the value for k and whether it was present.
	// A hit counts as an access for the eviction policy.
	Get(k K) (V, bool)

	// Evict removes k from storage and from the policy. No-op when absent.
	Evict(k K)
}

// TTLCache is a Cache whose entries may carry a relative time-to-live.
type TTLCache[K comparable, V any] interface {
	Cache[K, V]

	// PutWithTTL behaves like Put with a per-entry TTL.
	// A non-positive ttl disables expiration for this entry.
	PutWithTTL(k K, v V, ttl time.Duration)
}

// Sizer is implemented by caches that can report their resident entry count.
type Sizer interface{ Len() int }

// LenOf reports c's resident entry count when c implements Sizer.
func LenOf[K comparable, V any](c Cache[K, V]) (int, bool) {
	if s, ok := c.(Sizer); ok {
		return s.Len(), true
	}
	return 0, false
}
