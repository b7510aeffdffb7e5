// Package prom exports cache and strategy metrics to Prometheus.
package prom

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/strategy"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	sizeEnt prometheus.Gauge
}

// New constructs a Prometheus cache metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

// Size updates the resident entries gauge. Partitioned caches report per
// partition, so the gauge then shows the most recently updated partition.
func (a *Adapter) Size(entries int) {
	a.sizeEnt.Set(float64(entries))
}

// StrategyAdapter implements strategy.Metrics.
type StrategyAdapter struct {
	loads       *prometheus.HistogramVec
	storeErrors *prometheus.CounterVec
	pending     prometheus.Gauge
}

// NewStrategy constructs a Prometheus strategy metrics adapter; arguments
// match New.
func NewStrategy(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *StrategyAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &StrategyAdapter{
		loads: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "store_load_seconds",
				Help:        "Backing-store load latency by outcome",
				Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 14),
				ConstLabels: constLabels,
			},
			[]string{"found"},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "store_errors_total",
				Help:        "Failed backing-store operations by op",
				ConstLabels: constLabels,
			},
			[]string{"op"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "write_behind_pending",
			Help:        "Outstanding write-behind saves",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.loads, a.storeErrors, a.pending)
	return a
}

// Load observes a store load.
func (a *StrategyAdapter) Load(d time.Duration, found bool) {
	a.loads.WithLabelValues(strconv.FormatBool(found)).Observe(d.Seconds())
}

// StoreError counts a failed store operation.
func (a *StrategyAdapter) StoreError(op strategy.Op) {
	a.storeErrors.WithLabelValues(string(op)).Inc()
}

// Pending sets the outstanding write-behind saves gauge.
func (a *StrategyAdapter) Pending(n int64) { a.pending.Set(float64(n)) }

// Compile-time checks.
var (
	_ cache.Metrics    = (*Adapter)(nil)
	_ strategy.Metrics = (*StrategyAdapter)(nil)
)
