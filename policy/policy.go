// Package policy defines the eviction-policy contract shared by the bounded
// caches and a factory for the built-in policies.
//
// A policy is pure bookkeeping: it tracks keys, never values. The cache that
// owns it calls RecordAccess on every hit and every put, asks Evict for a
// victim when a new key arrives at full capacity, and calls Remove when a key
// leaves storage for any other reason.
//
// Policies are not safe for concurrent use and must not be shared between
// caches; each cache owns exactly one instance.
package policy

// Policy selects eviction victims.
//
// Semantics:
//   - RecordAccess is idempotent-safe: repeated calls for the same key only
//     update recency/frequency, never duplicate the key.
//   - Evict removes and returns the victim. On an empty policy it returns
//     the zero key and false; callers treat that as "nothing to evict".
//   - Remove drops k if tracked and is a no-op otherwise.
type Policy[K comparable] interface {
	RecordAccess(k K)
	Evict() (K, bool)
	Remove(k K)
	Len() int
}
