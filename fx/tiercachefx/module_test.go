package tiercachefx

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/config"
	"github.com/IvanBrykalov/tiercache/metrics/prom"
	"github.com/IvanBrykalov/tiercache/store"
	"github.com/IvanBrykalov/tiercache/strategy"
)

func TestModule_WriteBehindDrainsOnStop(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Kind = config.CacheTTL
	cfg.Strategy.Kind = string(strategy.KindWriteBehind)

	var (
		s  strategy.Strategy[string, int]
		st store.Store[string, int]
		c  cache.Cache[string, int]
	)
	app := fxtest.New(t,
		fx.Supply(cfg, zap.NewNop()),
		Module[string, int](),
		fx.Populate(&s, &st, &c),
	)
	app.RequireStart()

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "a", 1))
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	app.RequireStop()

	got, err := st.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestModule_UsesProvidedMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := prom.New(reg, "tiercache", "fx", nil)

	var s strategy.Strategy[string, int]
	app := fxtest.New(t,
		fx.Supply(config.Default(), zap.NewNop()),
		fx.Provide(func() cache.Metrics { return m }),
		Module[string, int](),
		fx.Populate(&s),
	)
	app.RequireStart()
	defer app.RequireStop()

	_, ok := s.Read(context.Background(), "missing")
	assert.False(t, ok)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var misses float64
	for _, mf := range mfs {
		if mf.GetName() == "tiercache_fx_misses_total" {
			misses = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), misses)
}

func TestModule_InvalidConfigFails(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Capacity = 0

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, zap.NewNop()),
		Module[string, int](),
		fx.Invoke(func(strategy.Strategy[string, int]) {}),
	)
	assert.ErrorContains(t, app.Err(), "config: invalid")
}
