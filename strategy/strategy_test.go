package strategy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/store/memstore"
	"github.com/IvanBrykalov/tiercache/wrapper"
)

var errBoom = errors.New("boom")

func newCache(t testing.TB) *cache.Memory[string, string] {
	t.Helper()
	c, err := cache.NewMemory[string, string](cache.Options[string, string]{Capacity: 64})
	require.NoError(t, err)
	return c
}

// syncCache is a Memory cache made safe for concurrent use.
func syncCache(t testing.TB) cache.Cache[string, string] {
	t.Helper()
	s, err := wrapper.NewStriped[string, string](newCache(t), wrapper.StripedOptions[string]{})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()

	for _, kind := range Kinds() {
		_, err := New[string, string](kind, nil, s)
		assert.ErrorIs(t, err, ErrNilCache, kind)
		_, err = New[string, string](kind, c, nil)
		assert.ErrorIs(t, err, ErrNilStore, kind)
	}
	_, err := New[string, string]("write-around", c, s)
	assert.Error(t, err)
}

func TestRead_SharedPath(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			c := newCache(t)
			s := memstore.New[string, string]()
			st, err := New(kind, c, s, WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)
			ctx := context.Background()

			// miss -> store -> cache
			s.Seed("a", "1")
			v, ok := st.Read(ctx, "a")
			require.True(t, ok)
			assert.Equal(t, "1", v)
			cached, ok := c.Get("a")
			require.True(t, ok, "loaded value must be cached")
			assert.Equal(t, "1", cached)

			// hit does not touch the store
			loads := s.Loads()
			_, ok = st.Read(ctx, "a")
			require.True(t, ok)
			assert.Equal(t, loads, s.Loads())

			// not found -> absent, nothing cached
			_, ok = st.Read(ctx, "missing")
			assert.False(t, ok)
			_, ok = c.Get("missing")
			assert.False(t, ok)

			// load failure degrades to absent
			s.OnLoad(func(context.Context, string) error { return errBoom })
			s.Seed("b", "2")
			_, ok = st.Read(ctx, "b")
			assert.False(t, ok)

			if cl, ok := st.(Closer); ok {
				require.NoError(t, cl.Close(time.Second))
			}
		})
	}
}

func TestCacheAside_WriteInvalidates(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	st, err := NewCacheAside[string, string](c, s)
	require.NoError(t, err)
	ctx := context.Background()

	c.Put("k", "old")
	require.NoError(t, st.Write(ctx, "k", "new"))

	_, ok := c.Get("k")
	assert.False(t, ok, "cache entry must be invalidated")
	stored, _ := s.Value("k")
	assert.Equal(t, "new", stored)

	v, ok := st.Read(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "new", v, "next read reloads from the store")
}

func TestCacheAside_SaveFailureLeavesCache(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	s.OnSave(func(context.Context, string, string) error { return errBoom })
	st, err := NewCacheAside[string, string](c, s)
	require.NoError(t, err)

	c.Put("k", "old")
	err = st.Write(context.Background(), "k", "new")
	require.ErrorIs(t, err, errBoom)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "old", v)
}

func TestReadThrough_WriteUpdatesBoth(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	st, err := NewReadThrough[string, string](c, s)
	require.NoError(t, err)

	require.NoError(t, st.Write(context.Background(), "k", "v"))
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	stored, _ := s.Value("k")
	assert.Equal(t, "v", stored)
}

// The cache is only updated after the store accepted the value.
func TestWriteThrough_Ordering(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	st, err := NewWriteThrough[string, string](c, s)
	require.NoError(t, err)
	ctx := context.Background()

	var cachedDuringSave bool
	s.OnSave(func(context.Context, string, string) error {
		_, cachedDuringSave = c.Get("k")
		return nil
	})
	require.NoError(t, st.Write(ctx, "k", "v1"))
	assert.False(t, cachedDuringSave, "cache must not be updated before the save")

	s.OnSave(func(context.Context, string, string) error { return errBoom })
	err = st.Write(ctx, "k", "v2")
	require.ErrorIs(t, err, errBoom)
	v, _ := c.Get("k")
	assert.Equal(t, "v1", v, "failed save keeps the previous cache state")
}

// Concurrent misses for one key share a single store load.
func TestRead_Coalescing(t *testing.T) {
	s := memstore.New[string, string]()
	s.Seed("hot", "v")
	release := make(chan struct{})
	var entered atomic.Int32
	s.OnLoad(func(context.Context, string) error {
		entered.Add(1)
		<-release
		return nil
	})

	st, err := NewReadThrough[string, string](syncCache(t), s, WithLoadCoalescing())
	require.NoError(t, err)

	var g errgroup.Group
	const readers = 32
	for i := 0; i < readers; i++ {
		g.Go(func() error {
			v, ok := st.Read(context.Background(), "hot")
			if !ok || v != "v" {
				return errors.New("reader missed")
			}
			return nil
		})
	}
	require.Eventually(t, func() bool { return entered.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond) // let followers join
	close(release)

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), s.Loads())
}

func TestWriteBehind_CacheUpdatedImmediately(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	release := make(chan struct{})
	s.OnSave(func(context.Context, string, string) error {
		<-release
		return nil
	})

	wb, err := NewWriteBehind[string, string](c, s)
	require.NoError(t, err)

	require.NoError(t, wb.Write(context.Background(), "k", "v"))
	v, ok := c.Get("k")
	require.True(t, ok, "cache must reflect the write before the save completes")
	assert.Equal(t, "v", v)
	_, stored := s.Value("k")
	assert.False(t, stored)
	assert.Equal(t, int64(1), wb.Pending())

	close(release)
	require.NoError(t, wb.Close(time.Second))
	stored2, _ := s.Value("k")
	assert.Equal(t, "v", stored2)
	assert.Equal(t, int64(0), wb.Pending())
}

func TestWriteBehind_ErrorsChannel(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	s.OnSave(func(context.Context, string, string) error { return errBoom })

	wb, err := NewWriteBehind[string, string](c, s)
	require.NoError(t, err)
	require.NoError(t, wb.Write(context.Background(), "k", "v"))

	select {
	case err := <-wb.Errors():
		var se *SaveError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "k", se.Key)
		assert.ErrorIs(t, err, errBoom)
	case <-time.After(time.Second):
		t.Fatal("no save error reported")
	}

	v, ok := c.Get("k")
	require.True(t, ok, "failed save must not touch the cache")
	assert.Equal(t, "v", v)

	require.NoError(t, wb.Close(time.Second))
	_, open := <-wb.Errors()
	assert.False(t, open, "Errors must be closed after a clean Close")
}

func TestWriteBehind_WriteAfterClose(t *testing.T) {
	c := newCache(t)
	s := memstore.New[string, string]()
	wb, err := NewWriteBehind[string, string](c, s)
	require.NoError(t, err)

	require.NoError(t, wb.Close(time.Second))
	require.NoError(t, wb.Close(time.Second), "Close must be idempotent")

	err = wb.Write(context.Background(), "k", "v")
	require.ErrorIs(t, err, ErrClosed)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, int64(0), s.Saves())
}

func TestWriteBehind_DrainTimeout(t *testing.T) {
	for _, ordered := range []bool{false, true} {
		s := memstore.New[string, string]()
		s.OnSave(func(ctx context.Context, _ string, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		})
		opts := []Option{WithErrorBuffer(16)}
		if ordered {
			opts = append(opts, WithPerKeyOrdering(), WithWorkers(2))
		}
		wb, err := NewWriteBehind[string, string](newCache(t), s, opts...)
		require.NoError(t, err)

		require.NoError(t, wb.Write(context.Background(), "a", "1"))
		require.NoError(t, wb.Write(context.Background(), "b", "2"))

		err = wb.Close(20 * time.Millisecond)
		require.ErrorIs(t, err, ErrDrainTimeout)
		require.ErrorIs(t, wb.Close(time.Second), ErrDrainTimeout, "later Close returns the first result")

		// Cancelled saves unwind and are reported.
		require.Eventually(t, func() bool { return wb.Pending() == 0 }, time.Second, time.Millisecond)
		var reported int
		for range wb.Errors() {
			reported++
		}
		assert.Equal(t, 2, reported)
	}
}

// Saves of one key reach the store in submission order.
func TestWriteBehind_PerKeyOrdering(t *testing.T) {
	s := memstore.New[string, int]()
	var mu sync.Mutex
	seen := map[string][]int{}
	s.OnSave(func(_ context.Context, k string, v int) error {
		if v%3 == 0 {
			time.Sleep(time.Millisecond)
		}
		mu.Lock()
		seen[k] = append(seen[k], v)
		mu.Unlock()
		return nil
	})

	c, err := cache.NewMemory[string, int](cache.Options[string, int]{Capacity: 8})
	require.NoError(t, err)
	wb, err := NewWriteBehind[string, int](c, s, WithPerKeyOrdering(), WithWorkers(4), WithQueueSize(8))
	require.NoError(t, err)

	keys := []string{"a", "b", "c"}
	for i := 0; i < 50; i++ {
		for _, k := range keys {
			require.NoError(t, wb.Write(context.Background(), k, i))
		}
	}
	require.NoError(t, wb.Close(5*time.Second))

	for _, k := range keys {
		require.Len(t, seen[k], 50)
		for i, v := range seen[k] {
			require.Equal(t, i, v, "key %s out of order", k)
		}
		last, _ := s.Value(k)
		assert.Equal(t, 49, last)
	}
}

// Unordered mode never runs more than WithMaxInFlight saves at once.
func TestWriteBehind_MaxInFlight(t *testing.T) {
	s := memstore.New[string, string]()
	var cur, peak atomic.Int32
	s.OnSave(func(context.Context, string, string) error {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		cur.Add(-1)
		return nil
	})

	wb, err := NewWriteBehind[string, string](syncCache(t), s, WithMaxInFlight(3))
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		require.NoError(t, wb.Write(context.Background(), string(rune('a'+i%26)), "v"))
	}
	require.NoError(t, wb.Close(5*time.Second))
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int64(30), s.Saves())
}

// Close does not deadlock against concurrent writers.
func TestWriteBehind_CloseConcurrentWithWrites(t *testing.T) {
	s := memstore.New[int, int]()
	c, err := cache.NewTTL[int, int](cache.Options[int, int]{Capacity: 1024, CleanupInterval: -1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	wb, err := NewWriteBehind[int, int](c, s, WithPerKeyOrdering(), WithQueueSize(1))
	require.NoError(t, err)

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				err := wb.Write(context.Background(), w*1000+i, i)
				if err != nil && !errors.Is(err, ErrClosed) {
					return err
				}
			}
			return nil
		})
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, wb.Close(5*time.Second))
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(0), wb.Pending())
}

// A writer waiting for queue room does not stall Close, even when the
// worker is stuck in a save that only ends on cancellation.
func TestWriteBehind_CloseReleasesBlockedWriter(t *testing.T) {
	s := memstore.New[string, string]()
	started := make(chan struct{}, 1)
	s.OnSave(func(ctx context.Context, _ string, _ string) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	})

	wb, err := NewWriteBehind[string, string](syncCache(t), s,
		WithPerKeyOrdering(), WithWorkers(1), WithQueueSize(1), WithErrorBuffer(8))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, wb.Write(ctx, "a", "1"))
	<-started // the only worker is now inside the save of "a"
	require.NoError(t, wb.Write(ctx, "b", "2"))

	blocked := make(chan error, 1)
	go func() { blocked <- wb.Write(ctx, "c", "3") }()
	time.Sleep(20 * time.Millisecond) // let "c" wait on the full queue

	closed := make(chan error, 1)
	go func() { closed <- wb.Close(50 * time.Millisecond) }()

	select {
	case err := <-closed:
		assert.ErrorIs(t, err, ErrDrainTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Write did not return")
	}
	assert.ErrorIs(t, wb.Write(ctx, "d", "4"), ErrClosed)
	require.Eventually(t, func() bool { return wb.Pending() == 0 }, time.Second, time.Millisecond)
}

type recordingMetrics struct {
	mu          sync.Mutex
	loads       int
	found       int
	storeErrors map[Op]int
	pendingMax  int64
}

func (m *recordingMetrics) Load(_ time.Duration, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if found {
		m.found++
	}
}

func (m *recordingMetrics) StoreError(op Op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErrors[op]++
}

func (m *recordingMetrics) Pending(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.pendingMax {
		m.pendingMax = n
	}
}

func TestMetrics_Hooks(t *testing.T) {
	m := &recordingMetrics{storeErrors: map[Op]int{}}
	s := memstore.New[string, string]()
	s.Seed("a", "1")
	st, err := NewWriteThrough[string, string](newCache(t), s, WithMetrics(m))
	require.NoError(t, err)
	ctx := context.Background()

	st.Read(ctx, "a")
	st.Read(ctx, "zzz")
	s.OnSave(func(context.Context, string, string) error { return errBoom })
	_ = st.Write(ctx, "a", "2")

	assert.Equal(t, 2, m.loads)
	assert.Equal(t, 1, m.found)
	assert.Equal(t, 1, m.storeErrors[OpSave])
}
