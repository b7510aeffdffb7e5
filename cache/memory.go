package cache

// Memory is a capacity-bounded in-memory cache driven by a pluggable
// eviction policy.
//
// Memory is NOT safe for concurrent use: wrap it with wrapper.NewStriped,
// wrapper.NewReadOptimized or wrapper.NewPartitioned when shared between
// goroutines.
type Memory[K comparable, V any] struct {
	b *bounded[K, V]
}

// NewMemory constructs a Memory cache. It returns ErrInvalidCapacity when
// opt.Capacity <= 0 and a policy error for an unknown opt.PolicyKind.
func NewMemory[K comparable, V any](opt Options[K, V]) (*Memory[K, V], error) {
	b, err := newBounded(opt, "memory")
	if err != nil {
		return nil, err
	}
	return &Memory[K, V]{b: b}, nil
}

// Put inserts or overwrites k→v.
func (c *Memory[K, V]) Put(k K, v V) {
	c.b.put(k, Entry[V]{Value: v})
}

// Get returns the value for k and records the access on a hit.
func (c *Memory[K, V]) Get(k K) (V, bool) {
	e, ok := c.b.m[k]
	if !ok {
		c.b.miss()
		var zero V
		return zero, false
	}
	c.b.hit(k)
	return e.Value, true
}

// Evict removes k from storage and from the policy.
func (c *Memory[K, V]) Evict(k K) { c.b.drop(k) }

// Len returns the number of resident entries.
func (c *Memory[K, V]) Len() int { return len(c.b.m) }

// Capacity returns the configured entry limit.
func (c *Memory[K, V]) Capacity() int { return c.b.cap }

// Stats returns a snapshot of the cache counters.
func (c *Memory[K, V]) Stats() Stats { return c.b.stats() }

var (
	_ Cache[string, int] = (*Memory[string, int])(nil)
	_ Sizer              = (*Memory[string, int])(nil)
)
