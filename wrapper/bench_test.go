package wrapper

import (
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/IvanBrykalov/tiercache/cache"
)

// benchmarkMix exercises a read/write mix against a warm wrapped cache.
// RunParallel spawns GOMAXPROCS goroutines.
func benchmarkMix(b *testing.B, c cache.Cache[int, int], readsPct int) {
	for i := 0; i < 50_000; i++ {
		c.Put(i, 1)
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	keyMask := (1 << 16) - 1

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			k := i & keyMask
			if r.Intn(100) < readsPct {
				c.Get(k)
			} else {
				c.Put(k, 1)
			}
			i++
		}
	})
}

func memory(b *testing.B, capacity int) *cache.Memory[int, int] {
	c, err := cache.NewMemory[int, int](cache.Options[int, int]{Capacity: capacity})
	if err != nil {
		b.Fatal(err)
	}
	return c
}

func BenchmarkReadOptimized_90r10w(b *testing.B) {
	c, _ := NewReadOptimized[int, int](memory(b, 100_000))
	benchmarkMix(b, c, 90)
}

func BenchmarkStriped_90r10w(b *testing.B) {
	c, _ := NewStriped[int, int](memory(b, 100_000), StripedOptions[int]{})
	benchmarkMix(b, c, 90)
}

func BenchmarkPartitioned_90r10w(b *testing.B) {
	c, _ := NewPartitioned[int, int](func(int) (cache.Cache[int, int], error) {
		return memory(b, 100_000/16), nil
	}, StripedOptions[int]{Level: 16})
	benchmarkMix(b, c, 90)
}

func BenchmarkPartitioned_50r50w(b *testing.B) {
	c, _ := NewPartitioned[int, int](func(int) (cache.Cache[int, int], error) {
		return memory(b, 100_000/16), nil
	}, StripedOptions[int]{Level: 16})
	benchmarkMix(b, c, 50)
}
