package policy

import (
	"fmt"
	"strings"

	"github.com/IvanBrykalov/tiercache/policy/fifo"
	"github.com/IvanBrykalov/tiercache/policy/lfu"
	"github.com/IvanBrykalov/tiercache/policy/lru"
	"github.com/IvanBrykalov/tiercache/policy/twoq"
)

// Kind names a built-in policy.
type Kind string

const (
	LRU  Kind = "lru"
	LFU  Kind = "lfu"
	FIFO Kind = "fifo"
	TwoQ Kind = "2q"
)

// Kinds lists the built-in policies in a stable order.
func Kinds() []Kind { return []Kind{LRU, LFU, FIFO, TwoQ} }

// ParseKind maps a case-insensitive name to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case LRU, LFU, FIFO, TwoQ:
		return k, nil
	case "":
		return LRU, nil
	default:
		return "", fmt.Errorf("policy: unknown kind %q", s)
	}
}

// New builds a fresh policy of the given kind. capacity sizes the 2Q queues
// and is ignored by the other policies.
func New[K comparable](kind Kind, capacity int) (Policy[K], error) {
	switch kind {
	case LRU, "":
		return lru.New[K](), nil
	case LFU:
		return lfu.New[K](), nil
	case FIFO:
		return fifo.New[K](), nil
	case TwoQ:
		return twoq.New[K](capacity), nil
	default:
		return nil, fmt.Errorf("policy: unknown kind %q", kind)
	}
}

var (
	_ Policy[string] = (*lru.Policy[string])(nil)
	_ Policy[string] = (*lfu.Policy[string])(nil)
	_ Policy[string] = (*fifo.Policy[string])(nil)
	_ Policy[string] = (*twoq.Policy[string])(nil)
)
