// Package redis implements distributed.Cache on go-redis/v9.
//
// Keys are Options.Prefix + fmt.Sprint(k) unless Options.KeyFunc is set.
// Values go through a distributed.Codec (JSON by default). Advisory locks
// are stored under "lock:" + key with a random token, and are released by a
// compare-and-delete script so an instance never frees a lock it lost.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/cache"
	"github.com/IvanBrykalov/tiercache/distributed"
)

const (
	// DefaultOpTimeout bounds the context-free Put/Get/Evict calls.
	DefaultOpTimeout = 500 * time.Millisecond
	// LockPrefix namespaces lock keys.
	LockPrefix = "lock:"

	scanCount = 256
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Options configures a Cache. Zero values are safe.
type Options[K comparable, V any] struct {
	// Prefix namespaces every key; Clear removes only prefixed keys.
	// An empty Prefix makes Clear flush the whole database.
	Prefix string
	// KeyFunc renders a key (without Prefix); fmt.Sprint when nil.
	KeyFunc func(K) string
	// Codec encodes values; distributed.JSON when nil.
	Codec distributed.Codec[V]
	// OpTimeout bounds Put/Get/Evict; DefaultOpTimeout when <= 0.
	OpTimeout time.Duration
	Logger    *zap.Logger
}

// Cache is a Redis-backed distributed.Cache. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	client  redis.UniversalClient
	prefix  string
	keyFn   func(K) string
	codec   distributed.Codec[V]
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	tokens map[string]string // lock key -> token held by this instance
}

// New returns a Cache over client. The client is owned by the caller.
func New[K comparable, V any](client redis.UniversalClient, opt Options[K, V]) (*Cache[K, V], error) {
	if client == nil {
		return nil, errors.New("redis: nil client")
	}
	if opt.KeyFunc == nil {
		opt.KeyFunc = func(k K) string { return fmt.Sprint(k) }
	}
	if opt.Codec == nil {
		opt.Codec = distributed.JSON[V]{}
	}
	if opt.OpTimeout <= 0 {
		opt.OpTimeout = DefaultOpTimeout
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return &Cache[K, V]{
		client:  client,
		prefix:  opt.Prefix,
		keyFn:   opt.KeyFunc,
		codec:   opt.Codec,
		timeout: opt.OpTimeout,
		log:     opt.Logger.Named("redis"),
		tokens:  make(map[string]string),
	}, nil
}

// ---- cache.Cache ----

// Put stores k→v without expiry. Failures are logged.
func (c *Cache[K, V]) Put(k K, v V) {
	ctx, cancel := c.opContext()
	defer cancel()
	if err := c.PutWithTTL(ctx, k, v, 0); err != nil {
		c.log.Error("put failed", zap.String("key", c.key(k)), zap.Error(err))
	}
}

// Get returns the value for k. Backend or decode failures are logged and
// reported as a miss.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	ctx, cancel := c.opContext()
	defer cancel()

	var zero V
	key := c.key(k)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.log.Error("get failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	v, err := c.codec.Decode(data)
	if err != nil {
		c.log.Error("decode failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Evict deletes k. Failures are logged.
func (c *Cache[K, V]) Evict(k K) {
	ctx, cancel := c.opContext()
	defer cancel()
	key := c.key(k)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Error("evict failed", zap.String("key", key), zap.Error(err))
	}
}

// ---- distributed.Cache ----

// PutWithTTL stores k→v expiring after ttl; ttl <= 0 means no expiry.
func (c *Cache[K, V]) PutWithTTL(ctx context.Context, k K, v V, ttl time.Duration) error {
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("redis: encode %q: %w", c.key(k), err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(k), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", c.key(k), err)
	}
	return nil
}

// AcquireLock runs SET lock:<key> <token> NX PX timeout.
// A non-positive timeout is rejected with distributed.ErrInvalidLease.
func (c *Cache[K, V]) AcquireLock(ctx context.Context, k K, timeout time.Duration) (bool, error) {
	lk := LockPrefix + c.key(k)
	if timeout <= 0 {
		return false, fmt.Errorf("redis: acquire %q: %w", lk, distributed.ErrInvalidLease)
	}
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, lk, token, timeout).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire %q: %w", lk, err)
	}
	if !ok {
		c.log.Debug("lock busy", zap.String("lock", lk))
		return false, nil
	}
	c.mu.Lock()
	c.tokens[lk] = token
	c.mu.Unlock()
	return true, nil
}

// ReleaseLock deletes the lock when it still carries this instance's token.
func (c *Cache[K, V]) ReleaseLock(ctx context.Context, k K) (bool, error) {
	lk := LockPrefix + c.key(k)
	c.mu.Lock()
	token, held := c.tokens[lk]
	delete(c.tokens, lk)
	c.mu.Unlock()
	if !held {
		c.log.Warn("no lock held to release", zap.String("lock", lk))
		return false, nil
	}

	n, err := releaseScript.Run(ctx, c.client, []string{lk}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: release %q: %w", lk, err)
	}
	if n == 0 {
		c.log.Warn("lock expired or taken over before release", zap.String("lock", lk))
	}
	return n > 0, nil
}

// Clear removes every key under Prefix, or flushes the database when no
// prefix is configured.
func (c *Cache[K, V]) Clear(ctx context.Context) error {
	if c.prefix == "" {
		c.log.Warn("flushing redis database")
		return c.client.FlushDB(ctx).Err()
	}
	pattern := escapeGlob(c.prefix) + "*"
	if cc, ok := c.client.(*redis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scanDelete(ctx, node, pattern)
		})
	}
	return scanDelete(ctx, c.client, pattern)
}

// PutAll writes every item in one pipeline.
func (c *Cache[K, V]) PutAll(ctx context.Context, items map[K]distributed.Item[V]) error {
	if len(items) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, it := range items {
			data, err := c.codec.Encode(it.Value)
			if err != nil {
				return fmt.Errorf("redis: encode %q: %w", c.key(k), err)
			}
			ttl := it.TTL
			if ttl < 0 {
				ttl = 0
			}
			pipe.Set(ctx, c.key(k), data, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: put all: %w", err)
	}
	return nil
}

// GetAll fetches keys with MGET (a pipeline of GETs on a cluster).
// Misses and undecodable values are absent from the result.
func (c *Cache[K, V]) GetAll(ctx context.Context, keys []K) (map[K]V, error) {
	out := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rk := make([]string, len(keys))
	for i, k := range keys {
		rk[i] = c.key(k)
	}

	raw, err := c.fetch(ctx, rk)
	if err != nil {
		return nil, fmt.Errorf("redis: get all: %w", err)
	}
	for i, data := range raw {
		if data == nil {
			continue
		}
		v, err := c.codec.Decode(data)
		if err != nil {
			c.log.Error("decode failed", zap.String("key", rk[i]), zap.Error(err))
			continue
		}
		out[keys[i]] = v
	}
	return out, nil
}

// fetch returns one slice per key; nil marks a miss.
func (c *Cache[K, V]) fetch(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if _, cluster := c.client.(*redis.ClusterClient); !cluster {
		vals, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if s, ok := v.(string); ok {
				out[i] = []byte(s)
			}
		}
		return out, nil
	}

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.Get(ctx, k)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, cmd := range cmds {
		if b, err := cmd.Bytes(); err == nil {
			out[i] = b
		}
	}
	return out, nil
}

func (c *Cache[K, V]) key(k K) string { return c.prefix + c.keyFn(k) }

func (c *Cache[K, V]) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// scanDelete removes keys matching pattern on one node in SCAN batches.
func scanDelete(ctx context.Context, client redis.Cmdable, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis: scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			// One UNLINK per key keeps cluster nodes free of CROSSSLOT errors.
			pipe := client.Pipeline()
			for _, k := range keys {
				pipe.Unlink(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("redis: unlink: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// escapeGlob quotes the glob metacharacters SCAN MATCH understands.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	_ distributed.Cache[string, int] = (*Cache[string, int])(nil)
	_ cache.Cache[string, int]       = (*Cache[string, int])(nil)
)
