// Package cache provides capacity-bounded in-memory caches with pluggable
// eviction policies, optional per-entry TTL, lightweight metrics hooks and
// eviction callbacks.
//
// Design
//
//   - Storage: a map of Entry values plus one eviction policy from package
//     policy (LRU by default; LFU, FIFO and 2Q are built in). The policy
//     tracks keys only; the cache keeps map and policy in step on every
//     Put, Get hit and Evict.
//
//   - Capacity: a cache never holds more than Options.Capacity entries.
//     Inserting a new key at full capacity evicts exactly one victim, chosen
//     by the policy, before the insert. Overwriting an existing key never
//     evicts.
//
//   - Memory: the plain bounded cache. It performs no locking and is not
//     safe for concurrent use; package wrapper adds thread-safety.
//
//   - TTL: Memory plus per-entry deadlines (UnixNano from Options.Clock).
//     Expired entries are removed lazily on Get and eagerly by a background
//     sweeper that runs every Options.CleanupInterval. Close stops the
//     sweeper with a bounded wait.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug metrics/prom to export them.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every capacity
//     or TTL eviction (reason is EvictCapacity or EvictTTL).
//
// Basic usage
//
//	c, err := cache.NewMemory[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    return err
//	}
//	c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//	c.Evict("a")
//
// With TTL
//
//	c, _ := cache.NewTTL[string, string](cache.Options[string, string]{
//	    Capacity:        1024,
//	    CleanupInterval: time.Minute,
//	})
//	defer c.Close()
//	c.PutWithTTL("tmp", "v", 200*time.Millisecond)
//
// Using an alternative policy
//
//	c, _ := cache.NewMemory[string, string](cache.Options[string, string]{
//	    Capacity:   50_000,
//	    PolicyKind: policy.TwoQ,
//	})
package cache
