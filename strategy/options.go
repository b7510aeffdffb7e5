package strategy

import (
	"time"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/internal/util"
)

// Option configures a strategy.
type Option interface {
	apply(*options)
}

// options holds the strategy configuration.
type options struct {
	logger   *zap.Logger
	metrics  Metrics
	coalesce bool

	// write-behind only
	workers     int
	maxInFlight int64
	perKeyOrder bool
	queueSize   int
	errorBuffer int
	saveTimeout time.Duration
}

const (
	// DefaultMaxInFlight bounds concurrent write-behind saves.
	DefaultMaxInFlight = 64
	// DefaultQueueSize is the per-worker queue length with per-key ordering.
	DefaultQueueSize = 256
	// DefaultErrorBuffer is the capacity of WriteBehind.Errors().
	DefaultErrorBuffer = 64
)

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		logger:      zap.NewNop(),
		metrics:     NoopMetrics{},
		workers:     util.DefaultStripes(),
		maxInFlight: DefaultMaxInFlight,
		queueSize:   DefaultQueueSize,
		errorBuffer: DefaultErrorBuffer,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&o)
		}
	}
	return o
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithMetrics sets the strategy metrics sink.
// If not set, NoopMetrics is used.
func WithMetrics(m Metrics) Option {
	return optionFunc(func(o *options) {
		if m != nil {
			o.metrics = m
		}
	})
}

// WithLoadCoalescing makes concurrent misses for one key share a single
// store Load. The cache must then be safe for concurrent use.
func WithLoadCoalescing() Option {
	return optionFunc(func(o *options) {
		o.coalesce = true
	})
}

// WithWorkers sets the number of FIFO save workers used with
// WithPerKeyOrdering. Values < 1 keep the default (util.DefaultStripes()).
func WithWorkers(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.workers = n
		}
	})
}

// WithMaxInFlight bounds concurrent saves in unordered write-behind mode.
// Values < 1 keep DefaultMaxInFlight.
func WithMaxInFlight(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.maxInFlight = int64(n)
		}
	})
}

// WithPerKeyOrdering routes every key to one FIFO worker by hash, so saves
// of the same key run in submission order. Keys must be hashable by
// util.Fnv64a (strings, integers, fmt.Stringer).
func WithPerKeyOrdering() Option {
	return optionFunc(func(o *options) {
		o.perKeyOrder = true
	})
}

// WithQueueSize sets the per-worker queue length with per-key ordering.
// A full queue makes Write wait for room.
func WithQueueSize(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	})
}

// WithErrorBuffer sets the capacity of WriteBehind.Errors(). Errors that
// do not fit are logged and dropped.
func WithErrorBuffer(n int) Option {
	return optionFunc(func(o *options) {
		if n >= 0 {
			o.errorBuffer = n
		}
	})
}

// WithSaveTimeout bounds each asynchronous save. Zero disables the bound.
func WithSaveTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		if d >= 0 {
			o.saveTimeout = d
		}
	})
}
