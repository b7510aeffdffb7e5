// Package twoq implements the 2Q eviction policy over keys.
package twoq

import "container/list"

// Policy implements 2Q.
//
// Resident queues:
//   - A1in: first-time keys, FIFO; its own list + index.
//   - Am:   keys referenced again, LRU.
//
// Ghost A1out remembers keys recently dropped from A1in (keys only) and
// re-admits them straight into Am, so a one-off scan cannot flush the hot set.
type Policy[K comparable] struct {
	capIn    int // A1in share before it becomes the preferred victim source
	capGhost int // A1out size

	// Lists are MRU at Front() -> LRU at Back(); element.Value is K.
	in      *list.List
	inIdx   map[K]*list.Element
	am      *list.List
	amIdx   map[K]*list.Element
	ghost   *list.List
	ghostIx map[K]*list.Element
}

// New sizes the queues from the owning cache's capacity:
// A1in ≈ 25% and A1out ≈ 50% of capacity (at least 1 each).
func New[K comparable](capacity int) *Policy[K] {
	return NewSized[K](capacity/4, capacity/2)
}

// NewSized builds a 2Q policy with explicit A1in and ghost sizes.
func NewSized[K comparable](capIn, capGhost int) *Policy[K] {
	if capIn < 1 {
		capIn = 1
	}
	if capGhost < 1 {
		capGhost = 1
	}
	return &Policy[K]{
		capIn:    capIn,
		capGhost: capGhost,
		in:       list.New(),
		inIdx:    make(map[K]*list.Element),
		am:       list.New(),
		amIdx:    make(map[K]*list.Element),
		ghost:    list.New(),
		ghostIx:  make(map[K]*list.Element),
	}
}

// RecordAccess admits or promotes k:
//   - in Am: move to MRU;
//   - in A1in: promote to Am (a second reference);
//   - remembered in A1out: bypass A1in, admit to Am, forget the ghost;
//   - otherwise: admit into A1in.
func (q *Policy[K]) RecordAccess(k K) {
	if el, ok := q.amIdx[k]; ok {
		q.am.MoveToFront(el)
		return
	}
	if el, ok := q.inIdx[k]; ok {
		q.in.Remove(el)
		delete(q.inIdx, k)
		q.amIdx[k] = q.am.PushFront(k)
		return
	}
	if ge, ok := q.ghostIx[k]; ok {
		q.ghost.Remove(ge)
		delete(q.ghostIx, k)
		q.amIdx[k] = q.am.PushFront(k)
		return
	}
	q.inIdx[k] = q.in.PushFront(k)
}

// Evict prefers the oldest A1in key while A1in exceeds its share (or Am is
// empty); otherwise it takes Am's LRU key. Keys leaving A1in become ghosts.
func (q *Policy[K]) Evict() (K, bool) {
	if q.in.Len() > 0 && (q.in.Len() > q.capIn || q.am.Len() == 0) {
		el := q.in.Back()
		k := el.Value.(K)
		q.in.Remove(el)
		delete(q.inIdx, k)
		q.remember(k)
		return k, true
	}
	if el := q.am.Back(); el != nil {
		k := el.Value.(K)
		q.am.Remove(el)
		delete(q.amIdx, k)
		return k, true
	}
	var zero K
	return zero, false
}

// Remove drops k. Removals from A1in populate ghosts; removals from Am do not.
func (q *Policy[K]) Remove(k K) {
	if el, ok := q.inIdx[k]; ok {
		q.in.Remove(el)
		delete(q.inIdx, k)
		q.remember(k)
		return
	}
	if el, ok := q.amIdx[k]; ok {
		q.am.Remove(el)
		delete(q.amIdx, k)
	}
}

// Len returns the number of resident keys (ghosts excluded).
func (q *Policy[K]) Len() int { return q.in.Len() + q.am.Len() }

// remember inserts k as MRU ghost and trims A1out to capGhost.
func (q *Policy[K]) remember(k K) {
	if old := q.ghostIx[k]; old != nil {
		q.ghost.Remove(old)
	}
	q.ghostIx[k] = q.ghost.PushFront(k)
	for q.ghost.Len() > q.capGhost {
		tail := q.ghost.Back()
		delete(q.ghostIx, tail.Value.(K))
		q.ghost.Remove(tail)
	}
}
