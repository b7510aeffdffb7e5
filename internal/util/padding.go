package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize covers x86-64 and most arm64 parts.
const CacheLineSize = 64

// CacheLinePad fills one cache line; place it between groups of fields that
// different goroutines write.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedAtomicUint64 occupies a whole cache line so that neighbouring
// counters never share one.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - unsafe.Sizeof(atomic.Uint64{})]byte
}

// PaddedAtomicInt64 is the signed counterpart, used for gauges.
type PaddedAtomicInt64 struct {
	atomic.Int64
	_ [CacheLineSize - unsafe.Sizeof(atomic.Int64{})]byte
}

// Both must be exactly one line.
var (
	_ [unsafe.Sizeof(PaddedAtomicUint64{}) - CacheLineSize]byte
	_ [CacheLineSize - unsafe.Sizeof(PaddedAtomicUint64{})]byte
	_ [unsafe.Sizeof(PaddedAtomicInt64{}) - CacheLineSize]byte
	_ [CacheLineSize - unsafe.Sizeof(PaddedAtomicInt64{})]byte
)
