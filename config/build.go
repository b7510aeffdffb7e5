package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/distributed"
	"github.com/IvanBrykalov/tiercache/distributed/redis"
	"github.com/IvanBrykalov/tiercache/internal/util"
	"github.com/IvanBrykalov/tiercache/policy"
	"github.com/IvanBrykalov/tiercache/store"
	"github.com/IvanBrykalov/tiercache/store/memstore"
	"github.com/IvanBrykalov/tiercache/store/pgstore"
	"github.com/IvanBrykalov/tiercache/strategy"
	"github.com/IvanBrykalov/tiercache/wrapper"
)

// Deps carries collaborators that YAML cannot describe. Zero values are
// safe except where a kind requires one (Redis for the redis cache, Pool
// for the postgres store).
type Deps[K comparable, V any] struct {
	Logger          *zap.Logger
	Metrics         cache.Metrics
	StrategyMetrics strategy.Metrics
	Redis           goredis.UniversalClient
	Pool            *pgxpool.Pool
	// OnEvict is passed to every in-process cache built.
	OnEvict func(k K, v V, reason cache.EvictReason)
}

func (d Deps[K, V]) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Tier is an assembled cache plus the resources it owns.
type Tier[K comparable, V any] struct {
	Cache   cache.Cache[K, V]
	closers []io.Closer
}

// Close releases sweepers and partitions. Safe to call more than once.
func (t *Tier[K, V]) Close() error {
	var errs []error
	for _, c := range t.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds a zap logger from c.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	level := zap.InfoLevel
	if c.Level != "" {
		l, err := zap.ParseAtomicLevel(strings.ToLower(c.Level))
		if err != nil {
			return nil, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
		}
		level = l.Level()
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// NewTier builds the configured cache and wraps it.
func NewTier[K comparable, V any](c Config, d Deps[K, V]) (*Tier[K, V], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t := &Tier[K, V]{}

	if c.Wrapper.Kind == WrapPartitioned {
		level := c.Wrapper.Level
		if level == 0 {
			level = util.DefaultStripes()
		}
		per := c.Cache
		per.Capacity = (c.Cache.Capacity + level - 1) / level
		p, err := wrapper.NewPartitioned(func(int) (cache.Cache[K, V], error) {
			base, _, err := newBase(Config{Cache: per, Redis: c.Redis}, d)
			return base, err
		}, wrapper.StripedOptions[K]{Level: level})
		if err != nil {
			return nil, err
		}
		t.Cache = p
		t.closers = append(t.closers, p)
		return t, nil
	}

	base, closer, err := newBase(c, d)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		t.closers = append(t.closers, closer)
	}
	// Redis and TTL caches synchronize internally.
	concurrent := c.Cache.Kind != CacheMemory

	switch c.Wrapper.Kind {
	case WrapReadOptimized:
		var opts []wrapper.ReadOption
		if c.Wrapper.SharedReads {
			opts = append(opts, wrapper.WithSharedReads())
		}
		t.Cache, err = wrapper.NewReadOptimized(base, opts...)
	case WrapStriped:
		t.Cache, err = wrapper.NewStriped(base, wrapper.StripedOptions[K]{
			Level:           c.Wrapper.Level,
			InnerConcurrent: concurrent,
		})
	default:
		t.Cache, err = wrapper.NewNullSafe(base)
	}
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return t, nil
}

// newBase builds the unwrapped cache. The closer is non-nil for caches that
// own background work.
func newBase[K comparable, V any](c Config, d Deps[K, V]) (cache.Cache[K, V], io.Closer, error) {
	log := d.logger()
	opt := cache.Options[K, V]{
		Capacity:        c.Cache.Capacity,
		PolicyKind:      policy.Kind(c.Cache.Policy),
		DefaultTTL:      c.Cache.DefaultTTL,
		CleanupInterval: c.Cache.CleanupInterval,
		ShutdownTimeout: c.Cache.ShutdownTimeout,
		OnEvict:         d.OnEvict,
		Metrics:         d.Metrics,
		Logger:          log,
	}
	switch c.Cache.Kind {
	case CacheTTL:
		ttl, err := cache.NewTTL(opt)
		if err != nil {
			return nil, nil, err
		}
		return ttl, ttl, nil
	case CacheRedis:
		if d.Redis == nil {
			return nil, nil, fmt.Errorf("%w: redis cache needs a client", ErrInvalid)
		}
		var codec distributed.Codec[V] = distributed.JSON[V]{}
		if c.Redis.Compress {
			z, err := distributed.NewZstd(codec, zstd.SpeedDefault)
			if err != nil {
				return nil, nil, err
			}
			codec = z
		}
		rc, err := redis.New[K, V](d.Redis, redis.Options[K, V]{
			Prefix:    c.Redis.Prefix,
			Codec:     codec,
			OpTimeout: c.Redis.OpTimeout,
			Logger:    log,
		})
		return rc, nil, err
	default:
		m, err := cache.NewMemory(opt)
		return m, nil, err
	}
}

// NewRedisClient returns a universal client for c: a cluster client for
// several addresses, a single-node client otherwise.
func NewRedisClient(c RedisConfig) goredis.UniversalClient {
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    c.Addrs,
		Password: c.Password,
		DB:       c.DB,
	})
}

// NewStore builds the configured backing store. The postgres table is
// created when missing.
func NewStore[K comparable, V any](ctx context.Context, c StoreConfig, d Deps[K, V]) (store.Store[K, V], error) {
	switch c.Kind {
	case StorePostgres:
		if d.Pool == nil {
			return nil, fmt.Errorf("%w: postgres store needs a pool", ErrInvalid)
		}
		s, err := pgstore.New[K, V](d.Pool, pgstore.Options[K]{Table: c.Table, Logger: d.logger()})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return memstore.New[K, V](), nil
	}
}

// StrategyOptions translates c into strategy options.
func StrategyOptions(c StrategyConfig, log *zap.Logger, m strategy.Metrics) []strategy.Option {
	var opts []strategy.Option
	if log != nil {
		opts = append(opts, strategy.WithLogger(log))
	}
	if m != nil {
		opts = append(opts, strategy.WithMetrics(m))
	}
	if c.LoadCoalescing {
		opts = append(opts, strategy.WithLoadCoalescing())
	}
	if c.PerKeyOrdering {
		opts = append(opts, strategy.WithPerKeyOrdering())
	}
	if c.Workers > 0 {
		opts = append(opts, strategy.WithWorkers(c.Workers))
	}
	if c.MaxInFlight > 0 {
		opts = append(opts, strategy.WithMaxInFlight(c.MaxInFlight))
	}
	if c.QueueSize > 0 {
		opts = append(opts, strategy.WithQueueSize(c.QueueSize))
	}
	if c.ErrorBuffer > 0 {
		opts = append(opts, strategy.WithErrorBuffer(c.ErrorBuffer))
	}
	if c.SaveTimeout > 0 {
		opts = append(opts, strategy.WithSaveTimeout(c.SaveTimeout))
	}
	return opts
}

// NewStrategy builds the configured strategy over c and s.
func NewStrategy[K comparable, V any](c StrategyConfig, ch cache.Cache[K, V], s store.Store[K, V], d Deps[K, V]) (strategy.Strategy[K, V], error) {
	return strategy.New(strategy.Kind(c.Kind), ch, s, StrategyOptions(c, d.Logger, d.StrategyMetrics)...)
}
