//go:build go1.18

package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Evict semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
func FuzzMemory_PutGetEvict(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c, err := NewMemory[string, string](Options[string, string]{Capacity: 2})
		if err != nil {
			t.Fatal(err)
		}

		c.Put(k, v)
		if got, ok := c.Get(k); !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// Two more distinct keys push k out under LRU.
		c.Put(k+"#1", v)
		c.Put(k+"#2", v)
		if _, ok := c.Get(k); ok {
			t.Fatalf("k must be evicted at capacity 2")
		}
		if c.Len() != 2 {
			t.Fatalf("Len = %d, want 2", c.Len())
		}

		c.Evict(k + "#1")
		if _, ok := c.Get(k + "#1"); ok {
			t.Fatalf("key must be absent after Evict")
		}
	})
}
