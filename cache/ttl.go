package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TTL is a capacity-bounded cache whose entries may expire.
//
// Expired entries are never returned: Get evicts them lazily, and a
// background sweeper removes them every Options.CleanupInterval. Because the
// sweeper mutates storage, TTL serializes all operations with an internal
// mutex and is safe for concurrent use. Call Close to stop the sweeper.
type TTL[K comparable, V any] struct {
	mu         sync.Mutex
	b          *bounded[K, V]
	clock      Clock
	defaultTTL time.Duration

	// sweeper lifecycle
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
}

// NewTTL constructs a TTL cache and starts its sweeper unless
// opt.CleanupInterval < 0.
func NewTTL[K comparable, V any](opt Options[K, V]) (*TTL[K, V], error) {
	b, err := newBounded(opt, "ttl")
	if err != nil {
		return nil, err
	}
	c := &TTL[K, V]{
		b:          b,
		clock:      b.opt.Clock,
		defaultTTL: b.opt.DefaultTTL,
		timeout:    b.opt.ShutdownTimeout,
	}
	if iv := b.opt.CleanupInterval; iv > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go c.sweeper(ctx, iv)
	}
	return c, nil
}

// Put inserts or overwrites k→v using Options.DefaultTTL (0 = no expiry).
func (c *TTL[K, V]) Put(k K, v V) { c.PutWithTTL(k, v, c.defaultTTL) }

// PutWithTTL inserts or overwrites k→v expiring ttl from now.
// A non-positive ttl disables expiration for this entry.
func (c *TTL[K, V]) PutWithTTL(k K, v V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.b.put(k, Entry[V]{Value: v, ExpiresAt: c.deadline(ttl)})
}

// Get returns the value for k. An expired entry is evicted and reported
// as a miss.
func (c *TTL[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.b.m[k]
	if !ok {
		c.b.miss()
		return zero, false
	}
	if e.Expired(c.clock.NowUnixNano()) {
		c.b.removeEntry(k, e, EvictTTL)
		c.b.miss()
		return zero, false
	}
	c.b.hit(k)
	return e.Value, true
}

// Evict removes k from storage and from the policy.
func (c *TTL[K, V]) Evict(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.b.drop(k)
}

// Len returns the number of resident entries, including expired entries
// not yet swept.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.b.m)
}

// Stats returns a snapshot of the cache counters.
func (c *TTL[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.b.stats()
}

// Sweep removes every expired entry now and returns how many were removed.
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.NowUnixNano()
	var expired []K
	for k, e := range c.b.m {
		if e.Expired(now) {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		c.b.removeEntry(k, c.b.m[k], EvictTTL)
	}
	return len(expired)
}

// Close stops the sweeper and waits for it at most Options.ShutdownTimeout.
// It returns ErrShutdownTimeout when the sweeper did not exit in time.
// Close is idempotent; later calls return the first result. The cache keeps
// serving Put/Get after Close, relying on lazy expiry only.
func (c *TTL[K, V]) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		t := time.NewTimer(c.timeout)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			c.b.log.Warn("sweeper did not stop in time", zap.Duration("timeout", c.timeout))
			c.closeErr = ErrShutdownTimeout
		}
	})
	return c.closeErr
}

// sweeper runs Sweep every interval until ctx is cancelled.
func (c *TTL[K, V]) sweeper(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.sweepOnce()
		}
	}
}

// sweepOnce runs one Sweep, recovering a panic so the next tick still runs.
func (c *TTL[K, V]) sweepOnce() {
	defer func() {
		if r := recover(); r != nil {
			c.b.log.Error("sweep panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if n := c.Sweep(); n > 0 {
		c.b.log.Debug("swept expired entries", zap.Int("count", n))
	}
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *TTL[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.clock.NowUnixNano() + int64(ttl)
}

var (
	_ TTLCache[string, int] = (*TTL[string, int])(nil)
	_ Sizer                 = (*TTL[string, int])(nil)
)
