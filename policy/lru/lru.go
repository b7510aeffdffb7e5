// Package lru implements the least-recently-used eviction policy.
package lru

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Policy is a classic move-to-front LRU over keys only.
// Recency order lives in a simplelru list whose own size limit is never
// reached; the owning cache enforces capacity and asks for victims.
type Policy[K comparable] struct {
	order *simplelru.LRU[K, struct{}]
}

// New returns an empty LRU policy.
func New[K comparable]() *Policy[K] {
	order, err := simplelru.NewLRU[K, struct{}](math.MaxInt, nil)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &Policy[K]{order: order}
}

// RecordAccess moves k to the most-recently-used end, inserting it if absent.
func (p *Policy[K]) RecordAccess(k K) { p.order.Add(k, struct{}{}) }

// Evict removes and returns the least-recently-used key.
func (p *Policy[K]) Evict() (K, bool) {
	k, _, ok := p.order.RemoveOldest()
	return k, ok
}

// Remove drops k if tracked.
func (p *Policy[K]) Remove(k K) { p.order.Remove(k) }

// Len returns the number of tracked keys.
func (p *Policy[K]) Len() int { return p.order.Len() }

// Keys returns tracked keys from least to most recently used.
func (p *Policy[K]) Keys() []K { return p.order.Keys() }
