package strategy

import "time"

// Op names a backing-store operation.
type Op string

const (
	OpLoad Op = "load"
	OpSave Op = "save"
)

// Metrics exposes strategy-level observability hooks.
type Metrics interface {
	// Load observes one store load; found is false for store.ErrNotFound.
	Load(d time.Duration, found bool)
	// StoreError counts a failed store operation.
	StoreError(op Op)
	// Pending reports outstanding write-behind saves.
	Pending(n int64)
}

// NoopMetrics is the default Metrics implementation.
type NoopMetrics struct{}

func (NoopMetrics) Load(time.Duration, bool) {}
func (NoopMetrics) StoreError(Op)            {}
func (NoopMetrics) Pending(int64)            {}

var _ Metrics = NoopMetrics{}
