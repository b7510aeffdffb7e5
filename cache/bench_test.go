package cache

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/IvanBrykalov/tiercache/policy"
)

// benchmarkMix exercises a read/write mix against a warm single-goroutine
// Memory cache; wrapper benchmarks cover the concurrent paths.
func benchmarkMix(b *testing.B, kind policy.Kind, readsPct int) {
	c, err := NewMemory[int, int](Options[int, int]{Capacity: 50_000, PolicyKind: kind})
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 25_000; i++ {
		c.Put(i, i)
	}

	r := rand.New(rand.NewSource(1))
	keyMask := (1 << 16) - 1

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := r.Int() & keyMask
		if r.Intn(100) < readsPct {
			c.Get(k)
		} else {
			c.Put(k, i)
		}
	}
}

func BenchmarkMemory_LRU_90r10w(b *testing.B)  { benchmarkMix(b, policy.LRU, 90) }
func BenchmarkMemory_LFU_90r10w(b *testing.B)  { benchmarkMix(b, policy.LFU, 90) }
func BenchmarkMemory_FIFO_90r10w(b *testing.B) { benchmarkMix(b, policy.FIFO, 90) }
func BenchmarkMemory_2Q_90r10w(b *testing.B)   { benchmarkMix(b, policy.TwoQ, 90) }
func BenchmarkMemory_LRU_50r50w(b *testing.B)  { benchmarkMix(b, policy.LRU, 50) }

func BenchmarkTTL_PutGet(b *testing.B) {
	c, err := NewTTL[string, string](Options[string, string]{Capacity: 100_000, CleanupInterval: -1})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = c.Close() })

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&0xffff)
			if i%10 == 0 {
				c.Put(k, "v")
			} else {
				c.Get(k)
			}
			i++
		}
	})
}
