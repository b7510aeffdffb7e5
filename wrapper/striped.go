package wrapper

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/internal/util"
)

// StripedOptions configures Striped and Partitioned.
type StripedOptions[K comparable] struct {
	// Level is the number of stripes. 0 picks util.DefaultStripes();
	// a negative value is rejected with ErrInvalidConcurrency.
	Level int
	// Hash maps a key to its stripe. Nil => FNV-1a over the key.
	Hash func(K) uint64
	// InnerConcurrent declares that the inner cache tolerates concurrent
	// calls on distinct keys (TTL cache, distributed backends). When false,
	// calls into the shared inner cache are serialized by one extra mutex.
	// Ignored by Partitioned, whose partitions are never shared.
	InnerConcurrent bool
}

func (o StripedOptions[K]) withDefaults() (StripedOptions[K], error) {
	switch {
	case o.Level == 0:
		o.Level = util.DefaultStripes()
	case o.Level < 0:
		return o, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, o.Level)
	}
	if o.Hash == nil {
		o.Hash = util.Fnv64a[K]
	}
	return o, nil
}

// stripe is one padded lock, kept on its own cache line.
type stripe struct {
	sync.Mutex
	_ util.CacheLinePad
}

// Striped guards an inner cache with a fixed set of mutexes; each operation
// takes exactly the lock of its key's stripe.
type Striped[K comparable, V any] struct {
	stripes []stripe
	hash    func(K) uint64
	inner   cache.Cache[K, V]
	innerMu *sync.Mutex // nil when the inner cache is concurrent
	nilable bool        // K can hold nil
}

// NewStriped wraps inner with opt.Level stripe locks.
//
// Unless opt.InnerConcurrent is set, calls into inner are also serialized by
// one shared mutex, so operations on different stripes do not run in
// parallel. Use InnerConcurrent with a concurrency-safe inner cache (TTL,
// distributed backends), or Partitioned, for parallel writers.
func NewStriped[K comparable, V any](inner cache.Cache[K, V], opt StripedOptions[K]) (*Striped[K, V], error) {
	if isNil(inner) {
		return nil, ErrNilCache
	}
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	s := &Striped[K, V]{
		stripes: make([]stripe, opt.Level),
		hash:    opt.Hash,
		inner:   inner,
		nilable: nilableKind[K](),
	}
	if !opt.InnerConcurrent {
		s.innerMu = new(sync.Mutex)
	}
	return s, nil
}

// Level returns the number of stripes.
func (s *Striped[K, V]) Level() int { return len(s.stripes) }

func (s *Striped[K, V]) Put(k K, v V) {
	unlock := s.lock(k)
	defer unlock()
	s.inner.Put(k, v)
}

func (s *Striped[K, V]) Get(k K) (V, bool) {
	unlock := s.lock(k)
	defer unlock()
	return s.inner.Get(k)
}

func (s *Striped[K, V]) Evict(k K) {
	unlock := s.lock(k)
	defer unlock()
	s.inner.Evict(k)
}

// Len returns the inner cache's size, or 0 when it cannot tell.
func (s *Striped[K, V]) Len() int {
	if s.innerMu != nil {
		s.innerMu.Lock()
		defer s.innerMu.Unlock()
	}
	l, _ := cache.LenOf(s.inner)
	return l
}

// lock takes k's stripe (and the inner mutex when required) and returns the
// matching unlock. Nil keys panic with ErrNilKey before any lock is taken.
func (s *Striped[K, V]) lock(k K) func() {
	st := &s.stripes[stripeOf(k, s.hash, len(s.stripes), s.nilable)]
	st.Lock()
	if s.innerMu == nil {
		return st.Unlock
	}
	s.innerMu.Lock()
	return func() {
		s.innerMu.Unlock()
		st.Unlock()
	}
}

// stripeOf maps k to a stripe. Only keys of a nilable kind pay for the nil
// check.
func stripeOf[K comparable](k K, hash func(K) uint64, n int, nilable bool) int {
	if nilable && isNil(any(k)) {
		panic(ErrNilKey)
	}
	return util.StripeIndex(hash(k), n)
}

// Partitioned is lock striping with one inner cache per stripe: each stripe
// lock guards its own partition, so writers on different stripes never
// contend. Capacity and eviction apply per partition.
type Partitioned[K comparable, V any] struct {
	parts   []partition[K, V]
	hash    func(K) uint64
	nilable bool
}

type partition[K comparable, V any] struct {
	mu sync.Mutex
	c  cache.Cache[K, V]
	_  util.CacheLinePad
}

// NewPartitioned builds opt.Level partitions through factory(i).
func NewPartitioned[K comparable, V any](factory func(i int) (cache.Cache[K, V], error), opt StripedOptions[K]) (*Partitioned[K, V], error) {
	if factory == nil {
		return nil, ErrNilCache
	}
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	p := &Partitioned[K, V]{
		parts:   make([]partition[K, V], opt.Level),
		hash:    opt.Hash,
		nilable: nilableKind[K](),
	}
	for i := range p.parts {
		c, err := factory(i)
		if err != nil {
			return nil, fmt.Errorf("wrapper: partition %d: %w", i, err)
		}
		if isNil(c) {
			return nil, fmt.Errorf("wrapper: partition %d: %w", i, ErrNilCache)
		}
		p.parts[i].c = c
	}
	return p, nil
}

// Level returns the number of partitions.
func (p *Partitioned[K, V]) Level() int { return len(p.parts) }

func (p *Partitioned[K, V]) Put(k K, v V) {
	pt := p.part(k)
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.c.Put(k, v)
}

func (p *Partitioned[K, V]) Get(k K) (V, bool) {
	pt := p.part(k)
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.c.Get(k)
}

func (p *Partitioned[K, V]) Evict(k K) {
	pt := p.part(k)
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.c.Evict(k)
}

// Len sums the sizes of all partitions that can report one.
func (p *Partitioned[K, V]) Len() int {
	total := 0
	for i := range p.parts {
		total += p.parts[i].len()
	}
	return total
}

// Close closes every partition implementing io.Closer (e.g. TTL caches).
func (p *Partitioned[K, V]) Close() error {
	var errs []error
	for i := range p.parts {
		if cl, ok := p.parts[i].c.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, fmt.Errorf("partition %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (p *Partitioned[K, V]) part(k K) *partition[K, V] {
	return &p.parts[stripeOf(k, p.hash, len(p.parts), p.nilable)]
}

func (pt *partition[K, V]) len() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	l, _ := cache.LenOf(pt.c)
	return l
}

var (
	_ cache.Cache[string, int] = (*Striped[string, int])(nil)
	_ cache.Cache[string, int] = (*Partitioned[string, int])(nil)
)
