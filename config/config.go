// Package config loads tiercache settings from YAML and assembles the
// configured cache, wrapper and strategy.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/tiercache/policy"
	"github.com/IvanBrykalov/tiercache/strategy"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Cache kinds.
const (
	CacheMemory = "memory"
	CacheTTL    = "ttl"
	CacheRedis  = "redis"
)

// Wrapper kinds.
const (
	WrapNone          = "none"
	WrapReadOptimized = "readoptimized"
	WrapStriped       = "striped"
	WrapPartitioned   = "partitioned"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the root document.
type Config struct {
	Cache    CacheConfig    `yaml:"cache"`
	Wrapper  WrapperConfig  `yaml:"wrapper"`
	Strategy StrategyConfig `yaml:"strategy"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// CacheConfig selects the cache tier.
type CacheConfig struct {
	Kind            string        `yaml:"kind"`
	Policy          string        `yaml:"policy"`
	Capacity        int           `yaml:"capacity"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WrapperConfig selects the concurrency wrapper around the cache.
type WrapperConfig struct {
	Kind        string `yaml:"kind"`
	Level       int    `yaml:"level"`
	SharedReads bool   `yaml:"shared_reads"`
}

// StrategyConfig selects the caching strategy.
type StrategyConfig struct {
	Kind           string        `yaml:"kind"`
	LoadCoalescing bool          `yaml:"load_coalescing"`
	Workers        int           `yaml:"workers"`
	MaxInFlight    int           `yaml:"max_in_flight"`
	PerKeyOrdering bool          `yaml:"per_key_ordering"`
	QueueSize      int           `yaml:"queue_size"`
	ErrorBuffer    int           `yaml:"error_buffer"`
	SaveTimeout    time.Duration `yaml:"save_timeout"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
}

// StoreConfig selects the backing store.
type StoreConfig struct {
	Kind  string `yaml:"kind"`
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// RedisConfig is used when Cache.Kind is "redis".
type RedisConfig struct {
	Addrs     []string      `yaml:"addrs"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	Prefix    string        `yaml:"prefix"`
	OpTimeout time.Duration `yaml:"op_timeout"`
	Compress  bool          `yaml:"compress"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns a configuration that validates: an LRU memory cache of
// 10k entries behind a striped wrapper, cache-aside over an in-memory store.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Kind:     CacheMemory,
			Policy:   string(policy.LRU),
			Capacity: 10_000,
		},
		Wrapper:  WrapperConfig{Kind: WrapStriped},
		Strategy: StrategyConfig{Kind: string(strategy.KindCacheAside), DrainTimeout: 5 * time.Second},
		Store:    StoreConfig{Kind: StoreMemory},
		Redis:    RedisConfig{Addrs: []string{"localhost:6379"}, Prefix: "tiercache:"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads path and overlays it on Default. The result is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown fields
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting, wrapped in ErrInvalid.
func (c Config) Validate() error {
	switch c.Cache.Kind {
	case CacheMemory, CacheTTL:
		if c.Cache.Capacity <= 0 {
			return invalid("cache.capacity must be > 0, got %d", c.Cache.Capacity)
		}
		if _, err := policy.ParseKind(c.Cache.Policy); err != nil {
			return invalid("cache.policy: %v", err)
		}
	case CacheRedis:
		if len(c.Redis.Addrs) == 0 {
			return invalid("redis.addrs is required for the redis cache")
		}
		if c.Wrapper.Kind == WrapPartitioned {
			return invalid("wrapper.kind %q cannot partition a shared redis cache", WrapPartitioned)
		}
	default:
		return invalid("cache.kind %q", c.Cache.Kind)
	}
	if c.Cache.DefaultTTL < 0 {
		return invalid("cache.default_ttl must be >= 0")
	}

	switch c.Wrapper.Kind {
	case "", WrapNone, WrapReadOptimized:
	case WrapStriped, WrapPartitioned:
		if c.Wrapper.Level < 0 {
			return invalid("wrapper.level must be >= 0, got %d", c.Wrapper.Level)
		}
	default:
		return invalid("wrapper.kind %q", c.Wrapper.Kind)
	}

	if c.Strategy.Kind != "" && !slices.Contains(strategy.Kinds(), strategy.Kind(c.Strategy.Kind)) {
		return invalid("strategy.kind %q", c.Strategy.Kind)
	}
	for name, n := range map[string]int{
		"strategy.workers":       c.Strategy.Workers,
		"strategy.max_in_flight": c.Strategy.MaxInFlight,
		"strategy.queue_size":    c.Strategy.QueueSize,
		"strategy.error_buffer":  c.Strategy.ErrorBuffer,
	} {
		if n < 0 {
			return invalid("%s must be >= 0, got %d", name, n)
		}
	}

	switch c.Store.Kind {
	case "", StoreMemory:
	case StorePostgres:
		if c.Store.DSN == "" {
			return invalid("store.dsn is required for postgres")
		}
	default:
		return invalid("store.kind %q", c.Store.Kind)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
