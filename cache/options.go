package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity: a new key arrived at full capacity and the policy
	// chose this entry as the victim.
	EvictCapacity EvictReason = iota
	// EvictTTL: expired, either lazily on Get or by the sweeper.
	EvictTTL
)

// String returns a stable label for the reason.
func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictTTL:
		return "ttl"
	default:
		return fmt.Sprintf("EvictReason(%d)", int(r))
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

type systemClock struct{}

func (systemClock) NowUnixNano() int64 { return time.Now().UnixNano() }

const (
	// DefaultCleanupInterval is the TTL sweeper period when none is set.
	DefaultCleanupInterval = 2 * time.Minute
	// DefaultShutdownTimeout bounds how long TTL.Close waits for the sweeper.
	DefaultShutdownTimeout = 5 * time.Second
)

// Options configures Memory and TTL. Zero values are safe;
// defaults are applied by the constructors:
//   - nil Policy           => policy.New(PolicyKind), LRU when PolicyKind is empty
//   - nil Metrics          => NoopMetrics
//   - nil Clock            => wall clock
//   - nil Logger           => zap.NewNop()
//   - CleanupInterval == 0 => DefaultCleanupInterval (TTL only; < 0 disables the sweeper)
//   - ShutdownTimeout <= 0 => DefaultShutdownTimeout (TTL only)
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Must be > 0.
	Capacity int

	// Policy is a ready eviction policy. It must be fresh and must not be
	// shared with another cache; the cache owns it from now on.
	Policy policy.Policy[K]
	// PolicyKind selects a built-in policy when Policy is nil.
	PolicyKind policy.Kind

	// DefaultTTL applies to TTL.Put (0 = no expiry). Ignored by Memory.
	DefaultTTL time.Duration
	// CleanupInterval is the sweeper period of the TTL cache.
	CleanupInterval time.Duration
	// ShutdownTimeout bounds TTL.Close.
	ShutdownTimeout time.Duration

	// OnEvict is called for capacity and TTL evictions while the cache's
	// internal state is being updated; keep callbacks lightweight and do not
	// call back into the cache. Explicit Evict does not invoke it.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock  Clock
	Logger *zap.Logger
}

// withDefaults validates opt and fills in zero fields.
func (opt Options[K, V]) withDefaults() (Options[K, V], error) {
	if opt.Capacity <= 0 {
		return opt, fmt.Errorf("%w: got %d", ErrInvalidCapacity, opt.Capacity)
	}
	if opt.Policy == nil {
		p, err := policy.New[K](opt.PolicyKind, opt.Capacity)
		if err != nil {
			return opt, err
		}
		opt.Policy = p
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Clock == nil {
		opt.Clock = systemClock{}
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.CleanupInterval == 0 {
		opt.CleanupInterval = DefaultCleanupInterval
	}
	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = DefaultShutdownTimeout
	}
	return opt, nil
}
