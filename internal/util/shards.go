package util

import (
	"math/bits"
	"runtime"
)

// MaxStripes caps the default stripe count.
const MaxStripes = 256

// DefaultStripes picks the default concurrency level for lock-striped
// wrappers and write-behind workers: nextPow2(2*GOMAXPROCS), clamped to
// [1..MaxStripes].
func DefaultStripes() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > MaxStripes {
		n = MaxStripes
	}
	return n
}

// StripeIndex maps a 64-bit hash onto [0, stripes).
// Power-of-two counts take the mask path; other counts use modulo, which is
// non-negative because the hash is unsigned.
func StripeIndex(hash uint64, stripes int) int {
	if stripes <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(stripes)) {
		return int(hash & uint64(stripes-1))
	}
	return int(hash % uint64(stripes))
}

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool { return bits.OnesCount64(x) == 1 }

// NextPow2 returns the smallest power of two >= x; 1 for x <= 1, clamped
// to 1<<63.
func NextPow2(x uint64) uint64 {
	switch {
	case x <= 1:
		return 1
	case x > 1<<63:
		return 1 << 63
	}
	return 1 << bits.Len64(x-1)
}
