package strategy

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/internal/util"
	"github.com/IvanBrykalov/tiercache/store"
)

// WriteBehind updates the cache synchronously and saves to the store in the
// background.
//
// By default every save runs on its own goroutine and at most
// WithMaxInFlight saves touch the store at once; saves of one key may then
// complete out of order. WithPerKeyOrdering instead routes each key to one
// of WithWorkers FIFO workers, so a key's saves run in submission order.
//
// Failed saves never touch the cache. They are logged, counted and sent to
// Errors() as *SaveError.
type WriteBehind[K comparable, V any] struct {
	*base[K, V]

	// saveCtx is cancelled when Close gives up draining.
	saveCtx context.Context
	cancel  context.CancelFunc

	// mu orders enqueues against Close: writers hold it shared while
	// scheduling, Close takes it exclusively to flip closed.
	mu     sync.RWMutex
	closed bool
	// closing is closed by Close before it takes mu, releasing writers
	// blocked on a full queue while they hold mu shared.
	closing chan struct{}

	sem     *semaphore.Weighted // unordered mode
	queues  []chan saveTask[K, V]
	workers sync.WaitGroup

	tasks   sync.WaitGroup // scheduled saves not yet finished
	pending util.PaddedAtomicInt64
	errs    chan error

	closeOnce sync.Once
	closeErr  error
}

type saveTask[K comparable, V any] struct {
	key K
	val V
}

// NewWriteBehind builds a write-behind strategy and starts its workers.
// Call Close to drain and stop them.
func NewWriteBehind[K comparable, V any](c cache.Cache[K, V], s store.Store[K, V], opts ...Option) (*WriteBehind[K, V], error) {
	b, err := newBase(c, s, "write-behind", opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &WriteBehind[K, V]{
		base:    b,
		saveCtx: ctx,
		cancel:  cancel,
		closing: make(chan struct{}),
		errs:    make(chan error, b.opt.errorBuffer),
	}
	if b.opt.perKeyOrder {
		w.queues = make([]chan saveTask[K, V], b.opt.workers)
		for i := range w.queues {
			q := make(chan saveTask[K, V], b.opt.queueSize)
			w.queues[i] = q
			w.workers.Add(1)
			go w.worker(q)
		}
	} else {
		w.sem = semaphore.NewWeighted(b.opt.maxInFlight)
	}
	return w, nil
}

// Write puts k→v into the cache and schedules the store save. After Close
// the cache is still updated but the save is skipped and ErrClosed returned.
// With per-key ordering Write may wait for queue room, bounded by ctx and
// by Close.
func (w *WriteBehind[K, V]) Write(ctx context.Context, k K, v V) error {
	w.cache.Put(k, v)

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}

	t := saveTask[K, V]{key: k, val: v}
	w.tasks.Add(1)
	w.opt.metrics.Pending(w.pending.Add(1))

	if w.queues == nil {
		go w.runUnordered(t)
		return nil
	}

	q := w.queues[util.StripeIndex(util.Fnv64a(k), len(w.queues))]
	select {
	case q <- t:
		return nil
	case <-ctx.Done():
		w.finish()
		return ctx.Err()
	case <-w.closing:
		w.finish()
		return ErrClosed
	}
}

// Errors returns the channel of asynchronous save failures. It is closed
// once Close has returned and every scheduled save has finished.
func (w *WriteBehind[K, V]) Errors() <-chan error { return w.errs }

// Pending returns the number of scheduled saves not yet finished.
func (w *WriteBehind[K, V]) Pending() int64 { return w.pending.Load() }

// Close stops accepting saves and waits up to timeout for scheduled ones.
// On timeout it cancels the in-flight saves' context and returns
// ErrDrainTimeout. Close is idempotent and safe to call concurrently with
// Write.
func (w *WriteBehind[K, V]) Close(timeout time.Duration) error {
	w.closeOnce.Do(func() {
		close(w.closing)
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()

		// No writer can be sending now.
		for _, q := range w.queues {
			close(q)
		}

		done := make(chan struct{})
		go func() {
			w.tasks.Wait()
			w.workers.Wait()
			close(done)
			close(w.errs)
		}()

		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-done:
		case <-t.C:
			w.log.Warn("write-behind drain timed out; abandoning saves",
				zap.Duration("timeout", timeout), zap.Int64("pending", w.pending.Load()))
			w.closeErr = ErrDrainTimeout
		}
		w.cancel()
	})
	return w.closeErr
}

func (w *WriteBehind[K, V]) runUnordered(t saveTask[K, V]) {
	defer w.finish()
	if err := w.sem.Acquire(w.saveCtx, 1); err != nil {
		w.fail(t.key, err)
		return
	}
	defer w.sem.Release(1)
	w.saveOne(t)
}

func (w *WriteBehind[K, V]) worker(q <-chan saveTask[K, V]) {
	defer w.workers.Done()
	for t := range q {
		w.saveOne(t)
		w.finish()
	}
}

// saveOne runs one store save under the save context and optional timeout.
func (w *WriteBehind[K, V]) saveOne(t saveTask[K, V]) {
	if err := w.saveCtx.Err(); err != nil {
		w.fail(t.key, err)
		return
	}
	ctx := w.saveCtx
	if d := w.opt.saveTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	if err := w.save(ctx, t.key, t.val); err != nil {
		w.report(&SaveError{Key: t.key, Err: err})
	}
}

// fail reports a save that never reached the store.
func (w *WriteBehind[K, V]) fail(k K, err error) {
	w.opt.metrics.StoreError(OpSave)
	w.log.Error("save abandoned", zap.Any("key", k), zap.Error(err))
	w.report(&SaveError{Key: k, Err: err})
}

// report delivers err without blocking; a full buffer drops it.
func (w *WriteBehind[K, V]) report(err error) {
	select {
	case w.errs <- err:
	default:
		w.log.Warn("error buffer full; dropping save error", zap.Error(err))
	}
}

func (w *WriteBehind[K, V]) finish() {
	w.opt.metrics.Pending(w.pending.Add(-1))
	w.tasks.Done()
}

var (
	_ Strategy[string, int] = (*WriteBehind[string, int])(nil)
	_ Closer                = (*WriteBehind[string, int])(nil)
)
