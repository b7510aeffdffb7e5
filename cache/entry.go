package cache

// Entry is a stored value with its absolute expiration deadline.
//
// ExpiresAt is UnixNano from the owning cache's Clock; zero or negative
// means the entry never expires. Entries are replaced wholesale on re-put.
type Entry[V any] struct {
	Value     V
	ExpiresAt int64
}

// Expired reports whether the entry's deadline lies strictly before now.
func (e Entry[V]) Expired(now int64) bool {
	return e.ExpiresAt > 0 && now > e.ExpiresAt
}
