package fifo

import "testing"

// Access does not change eviction order.
func TestFIFO_IgnoresAccess(t *testing.T) {
	t.Parallel()

	p := New[string]()
	p.RecordAccess("a")
	p.RecordAccess("b")
	p.RecordAccess("c")
	p.RecordAccess("a") // repeat access

	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3", p.Len())
	}
	for _, want := range []string{"a", "b", "c"} {
		if k, ok := p.Evict(); !ok || k != want {
			t.Fatalf("Evict = %q ok=%v, want %q", k, ok, want)
		}
	}
	if _, ok := p.Evict(); ok {
		t.Fatal("Evict on empty must report false")
	}
}

func TestFIFO_RemoveMiddle(t *testing.T) {
	t.Parallel()

	p := New[int]()
	p.RecordAccess(1)
	p.RecordAccess(2)
	p.RecordAccess(3)
	p.Remove(2)
	p.Remove(99)

	if k, _ := p.Evict(); k != 1 {
		t.Fatalf("Evict = %d, want 1", k)
	}
	if k, _ := p.Evict(); k != 3 {
		t.Fatalf("Evict = %d, want 3", k)
	}
}

// A key removed and recorded again re-enters at the tail.
func TestFIFO_ReinsertAfterRemove(t *testing.T) {
	t.Parallel()

	p := New[string]()
	p.RecordAccess("a")
	p.RecordAccess("b")
	p.Remove("a")
	p.RecordAccess("a")

	if k, _ := p.Evict(); k != "b" {
		t.Fatalf("Evict = %q, want b", k)
	}
}
