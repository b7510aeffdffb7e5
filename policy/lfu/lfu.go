// Package lfu implements the least-frequently-used eviction policy.
//
// Keys live in frequency buckets; each bucket keeps insertion order so that
// ties at the minimum frequency evict the oldest key first. minFreq tracks
// the smallest non-empty bucket, giving O(1) RecordAccess and Evict in the
// common case.
package lfu

import "container/list"

// Policy is an O(1) LFU with insertion-order tie-breaking.
type Policy[K comparable] struct {
	items   map[K]*item[K]
	buckets map[int]*list.List // freq -> keys, oldest at Front
	minFreq int                // 0 when empty
}

type item[K comparable] struct {
	freq int
	elem *list.Element // element.Value is K
}

// New returns an empty LFU policy.
func New[K comparable]() *Policy[K] {
	return &Policy[K]{
		items:   make(map[K]*item[K]),
		buckets: make(map[int]*list.List),
	}
}

// RecordAccess increments k's frequency (starting at 1) and moves it to the
// back of its new bucket.
func (p *Policy[K]) RecordAccess(k K) {
	it, ok := p.items[k]
	if !ok {
		p.items[k] = &item[K]{freq: 1, elem: p.bucket(1).PushBack(k)}
		p.minFreq = 1
		return
	}

	old := it.freq
	b := p.buckets[old]
	b.Remove(it.elem)
	if b.Len() == 0 {
		delete(p.buckets, old)
		if p.minFreq == old {
			p.minFreq++
		}
	}
	it.freq++
	it.elem = p.bucket(it.freq).PushBack(k)
}

// Evict removes and returns the oldest key in the minimum-frequency bucket.
func (p *Policy[K]) Evict() (K, bool) {
	var zero K
	if len(p.items) == 0 {
		return zero, false
	}
	b := p.buckets[p.minFreq]
	if b == nil || b.Len() == 0 {
		// Cursor drifted (cannot happen through this API); resync.
		p.minFreq = p.smallestFreq()
		if b = p.buckets[p.minFreq]; b == nil {
			return zero, false
		}
	}

	front := b.Front()
	k := front.Value.(K)
	b.Remove(front)
	delete(p.items, k)
	if b.Len() == 0 {
		delete(p.buckets, p.minFreq)
		p.minFreq = p.smallestFreq()
	}
	return k, true
}

// Remove drops k from its bucket if tracked.
func (p *Policy[K]) Remove(k K) {
	it, ok := p.items[k]
	if !ok {
		return
	}
	delete(p.items, k)
	b := p.buckets[it.freq]
	b.Remove(it.elem)
	if b.Len() == 0 {
		delete(p.buckets, it.freq)
		if it.freq == p.minFreq {
			p.minFreq = p.smallestFreq()
		}
	}
}

// Len returns the number of tracked keys.
func (p *Policy[K]) Len() int { return len(p.items) }

// Frequency returns k's access count, or 0 if untracked.
func (p *Policy[K]) Frequency(k K) int {
	if it, ok := p.items[k]; ok {
		return it.freq
	}
	return 0
}

// MinFrequency returns the current minimum bucket (0 when empty).
func (p *Policy[K]) MinFrequency() int { return p.minFreq }

func (p *Policy[K]) bucket(freq int) *list.List {
	b, ok := p.buckets[freq]
	if !ok {
		b = list.New()
		p.buckets[freq] = b
	}
	return b
}

// smallestFreq scans bucket keys; it runs only when the minimum bucket
// empties through Evict/Remove.
func (p *Policy[K]) smallestFreq() int {
	lo := 0
	for f := range p.buckets {
		if lo == 0 || f < lo {
			lo = f
		}
	}
	return lo
}
