package cache

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/internal/util"
	"github.com/IvanBrykalov/tiercache/policy"
)

// bounded is the storage core shared by Memory and TTL: a map of entries,
// the owned eviction policy, and hit/miss/evict counters.
// It does no locking; callers serialize access.
type bounded[K comparable, V any] struct {
	m   map[K]Entry[V]
	cap int
	pol policy.Policy[K]
	opt Options[K, V]
	log *zap.Logger

	// ---- counters read by Stats (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

func newBounded[K comparable, V any](opt Options[K, V], name string) (*bounded[K, V], error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	return &bounded[K, V]{
		m:   make(map[K]Entry[V], opt.Capacity),
		cap: opt.Capacity,
		pol: opt.Policy,
		opt: opt,
		log: opt.Logger.Named(name),
	}, nil
}

// put stores e under k, evicting one victim first when k is new and the
// map is full.
func (b *bounded[K, V]) put(k K, e Entry[V]) {
	if _, exists := b.m[k]; !exists && len(b.m) >= b.cap {
		b.evictVictim()
	}
	b.m[k] = e
	b.pol.RecordAccess(k)
	b.opt.Metrics.Size(len(b.m))
}

// evictVictim asks the policy for a victim and removes it from storage.
// Victims the map no longer holds are skipped.
func (b *bounded[K, V]) evictVictim() {
	for {
		victim, ok := b.pol.Evict()
		if !ok {
			b.log.Warn("policy returned no victim at full capacity; inserting over capacity",
				zap.Int("len", len(b.m)), zap.Int("capacity", b.cap))
			return
		}
		e, present := b.m[victim]
		if !present {
			b.log.Warn("policy victim not in storage", zap.Any("key", victim))
			continue
		}
		b.removeEntry(victim, e, EvictCapacity)
		return
	}
}

// removeEntry deletes k for reason, notifying policy, counters, metrics and
// the OnEvict callback.
func (b *bounded[K, V]) removeEntry(k K, e Entry[V], reason EvictReason) {
	delete(b.m, k)
	b.pol.Remove(k)
	b.evicts.Add(1)
	b.opt.Metrics.Evict(reason)
	b.opt.Metrics.Size(len(b.m))
	if cb := b.opt.OnEvict; cb != nil {
		cb(k, e.Value, reason)
	}
	b.log.Debug("evicted", zap.Any("key", k), zap.Stringer("reason", reason))
}

// drop is the explicit Evict path: storage and policy, no callback.
func (b *bounded[K, V]) drop(k K) {
	if _, ok := b.m[k]; ok {
		delete(b.m, k)
		b.opt.Metrics.Size(len(b.m))
	}
	b.pol.Remove(k)
}

func (b *bounded[K, V]) hit(k K) {
	b.pol.RecordAccess(k)
	b.hits.Add(1)
	b.opt.Metrics.Hit()
}

func (b *bounded[K, V]) miss() {
	b.misses.Add(1)
	b.opt.Metrics.Miss()
}

func (b *bounded[K, V]) stats() Stats {
	return Stats{
		Hits:      b.hits.Load(),
		Misses:    b.misses.Load(),
		Evictions: b.evicts.Load(),
		Len:       len(b.m),
	}
}
