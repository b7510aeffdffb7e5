package policy

import (
	"testing"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	cases := map[string]Kind{"lru": LRU, " LFU ": LFU, "Fifo": FIFO, "2q": TwoQ, "": LRU}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("mru"); err == nil {
		t.Fatal("unknown kind must fail")
	}
}

// Every built-in policy reports "nothing to evict" when empty.
func TestNew_AllKindsEvictEmpty(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		p, err := New[string](kind, 4)
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		if _, ok := p.Evict(); ok {
			t.Fatalf("%s: Evict on empty must report false", kind)
		}
		p.Remove("absent")
		p.RecordAccess("a")
		p.RecordAccess("a")
		if p.Len() != 1 {
			t.Fatalf("%s: Len = %d, want 1", kind, p.Len())
		}
	}
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	if _, err := New[int](Kind("clock"), 4); err == nil {
		t.Fatal("unknown kind must fail")
	}
}
