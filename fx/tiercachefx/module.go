// Package tiercachefx provides an fx module assembling a cache tier, a
// backing store and a strategy from config.Config.
package tiercachefx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/config"
	"github.com/IvanBrykalov/tiercache/store"
	"github.com/IvanBrykalov/tiercache/strategy"
)

// Module provides cache.Cache[K,V], store.Store[K,V] and
// strategy.Strategy[K,V]. Requires a config.Config and a *zap.Logger;
// cache.Metrics and strategy.Metrics are used when provided.
//
// Connections, sweepers and write-behind workers are released on stop,
// strategy first so queued saves can still reach the store.
func Module[K comparable, V any]() fx.Option {
	return fx.Module("tiercache",
		fx.Provide(
			newDeps[K, V],
			newTier[K, V],
			newStore[K, V],
			newStrategy[K, V],
		),
	)
}

// DepsParams holds the optional collaborators.
type DepsParams struct {
	fx.In

	Config          config.Config
	Logger          *zap.Logger
	Metrics         cache.Metrics    `optional:"true"`
	StrategyMetrics strategy.Metrics `optional:"true"`
	Lifecycle       fx.Lifecycle
}

func newDeps[K comparable, V any](p DepsParams) (config.Deps[K, V], error) {
	d := config.Deps[K, V]{
		Logger:          p.Logger.Named("tiercache"),
		Metrics:         p.Metrics,
		StrategyMetrics: p.StrategyMetrics,
	}

	if p.Config.Cache.Kind == config.CacheRedis {
		client := config.NewRedisClient(p.Config.Redis)
		d.Redis = client
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis ping: %w", err)
				}
				return nil
			},
			OnStop: func(context.Context) error { return client.Close() },
		})
	}

	if p.Config.Store.Kind == config.StorePostgres {
		pool, err := pgxpool.New(context.Background(), p.Config.Store.DSN)
		if err != nil {
			return d, fmt.Errorf("postgres pool: %w", err)
		}
		d.Pool = pool
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				pool.Close()
				return nil
			},
		})
	}
	return d, nil
}

// TierParams holds dependencies for building the cache tier.
type TierParams[K comparable, V any] struct {
	fx.In

	Config    config.Config
	Deps      config.Deps[K, V]
	Lifecycle fx.Lifecycle
}

// TierResult exposes the tier and its cache.
type TierResult[K comparable, V any] struct {
	fx.Out

	Tier  *config.Tier[K, V]
	Cache cache.Cache[K, V]
}

func newTier[K comparable, V any](p TierParams[K, V]) (TierResult[K, V], error) {
	tier, err := config.NewTier(p.Config, p.Deps)
	if err != nil {
		return TierResult[K, V]{}, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return tier.Close() },
	})
	return TierResult[K, V]{Tier: tier, Cache: tier.Cache}, nil
}

func newStore[K comparable, V any](cfg config.Config, d config.Deps[K, V]) (store.Store[K, V], error) {
	// EnsureSchema runs once at construction; fx constructors have no ctx.
	return config.NewStore(context.Background(), cfg.Store, d)
}

// StrategyParams holds dependencies for building the strategy.
type StrategyParams[K comparable, V any] struct {
	fx.In

	Config    config.Config
	Deps      config.Deps[K, V]
	Cache     cache.Cache[K, V]
	Store     store.Store[K, V]
	Lifecycle fx.Lifecycle
}

func newStrategy[K comparable, V any](p StrategyParams[K, V]) (strategy.Strategy[K, V], error) {
	s, err := config.NewStrategy(p.Config.Strategy, p.Cache, p.Store, p.Deps)
	if err != nil {
		return nil, err
	}
	if c, ok := s.(strategy.Closer); ok {
		timeout := p.Config.Strategy.DrainTimeout
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error { return c.Close(timeout) },
		})
	}
	return s, nil
}
