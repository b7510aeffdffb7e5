package twoq

import (
	"testing"
)

// A first-time key is admitted into A1in.
func TestTwoQ_AddGoesToA1in(t *testing.T) {
	t.Parallel()

	p := NewSized[string](2, 4)
	p.RecordAccess("a")

	if p.in.Len() != 1 || p.am.Len() != 0 {
		t.Fatalf("want a in A1in only, got in=%d am=%d", p.in.Len(), p.am.Len())
	}
	if _, ok := p.inIdx["a"]; !ok {
		t.Fatal("a must be indexed in A1in")
	}
}

// When A1in exceeds its share, Evict takes its oldest key and remembers it.
func TestTwoQ_OverflowEvictsOldestOfA1in(t *testing.T) {
	t.Parallel()

	p := NewSized[string](2, 4)
	p.RecordAccess("hot")
	p.RecordAccess("hot") // promoted to Am
	p.RecordAccess("a")
	p.RecordAccess("b")
	p.RecordAccess("c") // A1in: [c b a], over capIn=2

	k, ok := p.Evict()
	if !ok || k != "a" {
		t.Fatalf("Evict = %q ok=%v, want a", k, ok)
	}
	if _, ok := p.ghostIx["a"]; !ok {
		t.Fatal("a must be remembered in A1out")
	}
}

// With A1in within its share, Am's LRU key is the victim.
func TestTwoQ_EvictsFromAmWhenA1inSmall(t *testing.T) {
	t.Parallel()

	p := NewSized[string](2, 2)
	p.RecordAccess("x")
	p.RecordAccess("x")
	p.RecordAccess("y")
	p.RecordAccess("y") // Am: [y x]
	p.RecordAccess("n") // A1in: [n]

	if k, _ := p.Evict(); k != "x" {
		t.Fatalf("Evict = %q, want x (LRU of Am)", k)
	}
}

// Removing a key from A1in places it into ghosts.
func TestTwoQ_RemoveFromA1inGoesToGhost(t *testing.T) {
	t.Parallel()

	p := NewSized[string](2, 2)
	p.RecordAccess("a")
	p.Remove("a")

	if _, ok := p.inIdx["a"]; ok {
		t.Fatal("a must leave A1in")
	}
	if _, ok := p.ghostIx["a"]; !ok {
		t.Fatal("a must be in A1out")
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d, want 0", p.Len())
	}
}

// A key re-admitted from ghosts bypasses A1in.
func TestTwoQ_AddFromGhostGoesToAm(t *testing.T) {
	t.Parallel()

	p := NewSized[string](1, 2)
	p.RecordAccess("a")
	p.Remove("a")
	p.RecordAccess("a")

	if _, ok := p.inIdx["a"]; ok {
		t.Fatal("a must not be in A1in")
	}
	if _, ok := p.amIdx["a"]; !ok {
		t.Fatal("a must be in Am")
	}
	if _, ok := p.ghostIx["a"]; ok {
		t.Fatal("ghost must be consumed")
	}
}

// Ghost list is bounded by capGhost.
func TestTwoQ_GhostBounded(t *testing.T) {
	t.Parallel()

	p := NewSized[int](1, 2)
	for i := 0; i < 5; i++ {
		p.RecordAccess(i)
		p.Remove(i)
	}
	if p.ghost.Len() != 2 {
		t.Fatalf("ghost len = %d, want 2", p.ghost.Len())
	}
	if _, ok := p.ghostIx[4]; !ok {
		t.Fatal("most recent ghost must be kept")
	}
}

func TestTwoQ_EvictEmpty(t *testing.T) {
	t.Parallel()

	p := New[string](8)
	if _, ok := p.Evict(); ok {
		t.Fatal("Evict on empty must report false")
	}
}
