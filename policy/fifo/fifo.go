// Package fifo implements first-in-first-out eviction: the oldest inserted
// key goes first and re-access never reorders.
package fifo

import "container/list"

// Policy is a deduplicated insertion queue.
type Policy[K comparable] struct {
	queue *list.List // oldest at Front; element.Value is K
	index map[K]*list.Element
}

// New returns an empty FIFO policy.
func New[K comparable]() *Policy[K] {
	return &Policy[K]{queue: list.New(), index: make(map[K]*list.Element)}
}

// RecordAccess enqueues k only if it is not already tracked.
func (p *Policy[K]) RecordAccess(k K) {
	if _, ok := p.index[k]; ok {
		return
	}
	p.index[k] = p.queue.PushBack(k)
}

// Evict dequeues the oldest key.
func (p *Policy[K]) Evict() (K, bool) {
	front := p.queue.Front()
	if front == nil {
		var zero K
		return zero, false
	}
	k := front.Value.(K)
	p.queue.Remove(front)
	delete(p.index, k)
	return k, true
}

// Remove drops k if tracked.
func (p *Policy[K]) Remove(k K) {
	if el, ok := p.index[k]; ok {
		p.queue.Remove(el)
		delete(p.index, k)
	}
}

// Len returns the number of tracked keys.
func (p *Policy[K]) Len() int { return len(p.index) }
