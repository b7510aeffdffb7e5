// Package singleflight coalesces concurrent backing-store loads for the same
// key so a cold key hit by many readers costs one Load.
package singleflight

import (
	"context"
	"sync"
)

// Group runs at most one fn per key at a time; concurrent callers for the
// same key wait for and share the leader's result.
//
// Cancelling a follower's ctx unblocks only that follower. The leader keeps
// running fn; thread ctx into fn if the work itself must stop.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done   chan struct{} // closed once val/err/shared are published
	val    V
	ok     bool
	err    error
	shared int
}

// Do runs fn once for key. It returns fn's results and whether the result
// was shared with at least one other caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, bool, error)) (v V, ok bool, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, exists := g.m[key]; exists {
		c.shared++
		done := c.done
		g.mu.Unlock()

		select {
		case <-done:
			return c.val, c.ok, c.err, true
		case <-ctx.Done():
			var zero V
			return zero, false, ctx.Err(), true
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	// Publish even if fn panics so followers are never stranded.
	defer func() {
		g.mu.Lock()
		delete(g.m, key)
		shared = c.shared > 0
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.ok, c.err = fn()
	return c.val, c.ok, c.err, false
}
