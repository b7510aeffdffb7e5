package wrapper

import (
	"reflect"

	"github.com/IvanBrykalov/tiercache/cache"
)

// NullSafe drops Puts carrying a nil value; Get and Evict delegate.
type NullSafe[K comparable, V any] struct {
	inner cache.Cache[K, V]
}

// NewNullSafe wraps inner.
func NewNullSafe[K comparable, V any](inner cache.Cache[K, V]) (*NullSafe[K, V], error) {
	if isNil(inner) {
		return nil, ErrNilCache
	}
	return &NullSafe[K, V]{inner: inner}, nil
}

// Put stores k→v unless v is nil.
func (n *NullSafe[K, V]) Put(k K, v V) {
	if isNil(v) {
		return
	}
	n.inner.Put(k, v)
}

func (n *NullSafe[K, V]) Get(k K) (V, bool) { return n.inner.Get(k) }
func (n *NullSafe[K, V]) Evict(k K)         { n.inner.Evict(k) }

// Len reports the inner cache's size, or 0 when it cannot tell.
func (n *NullSafe[K, V]) Len() int {
	l, _ := cache.LenOf(n.inner)
	return l
}

// isNil reports whether x is nil or a typed nil of a nilable kind.
func isNil(x any) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}

// nilableKind reports whether values of K can be nil. Comparable kinds only,
// so slices, maps and funcs never reach here.
func nilableKind[K any]() bool {
	switch reflect.TypeFor[K]().Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

var _ cache.Cache[string, *int] = (*NullSafe[string, *int])(nil)
