// Package wrapper adds thread-safety and nil filtering to any cache.Cache
// through flat decorators. Every wrapper holds exactly one inner cache (or
// one per stripe for Partitioned) and implements cache.Cache itself, so the
// wrappers compose in any order.
//
//   - NullSafe drops Puts whose value is a nil pointer, map, slice, chan,
//     func or interface.
//   - ReadOptimized guards the inner cache with one sync.RWMutex.
//   - Striped guards keys with a fixed set of mutexes chosen by key hash.
//   - Partitioned gives every stripe its own inner cache, so writers on
//     different stripes run in parallel.
//
// All locks are released with defer, so a panic raised by the inner cache
// never leaves a wrapper locked.
package wrapper

import "errors"

var (
	// ErrNilCache is returned when a wrapper is built around a nil cache.
	ErrNilCache = errors.New("wrapper: nil cache")
	// ErrInvalidConcurrency is returned for an explicit stripe count <= 0.
	ErrInvalidConcurrency = errors.New("wrapper: concurrency level must be > 0")
	// ErrNilKey is the panic value for a nil pointer or interface key.
	ErrNilKey = errors.New("wrapper: nil key")
)
