// Package redis provides an httpcache.Backend backed by a Redis server,
// suitable as a shared tier across multiple cache instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cachetier/httpcache"
	goredis "github.com/redis/go-redis/v9"
)

// Config holds the configuration for creating a Redis-backed Backend.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379"). Required.
	Addr string

	// Password authenticates against the Redis server. Optional.
	Password string

	// DB selects the Redis logical database. Optional, defaults to 0.
	DB int

	// DialTimeout bounds connection establishment. Optional, defaults to
	// 5 seconds.
	DialTimeout time.Duration

	// ReadTimeout and WriteTimeout bound individual command round-trips.
	// Optional, default to 3 seconds each.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// KeyPrefix is prepended to every cache key to avoid collisions with
	// unrelated data sharing the same Redis database. Optional, defaults
	// to "httpcache:".
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "httpcache:",
	}
}

// Cache is an httpcache.Backend that stores entries in Redis.
type Cache struct {
	client *goredis.Client
	prefix string
}

var _ httpcache.Backend = (*Cache)(nil)

// New connects to the Redis server described by config and returns a Cache.
// config.Addr is required; all other fields fall back to DefaultConfig.
func New(config Config) (*Cache, error) {
	if config.Addr == "" {
		return nil, errors.New("redis: Addr is required")
	}

	defaults := DefaultConfig()
	if config.DialTimeout == 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // best effort cleanup after failed ping
		return nil, fmt.Errorf("redis: connecting to %s: %w", config.Addr, err)
	}

	return &Cache{client: client, prefix: config.KeyPrefix}, nil
}

// NewWithClient wraps an already-configured *goredis.Client.
func NewWithClient(client *goredis.Client, keyPrefix string) *Cache {
	if keyPrefix == "" {
		keyPrefix = DefaultConfig().KeyPrefix
	}
	return &Cache{client: client, prefix: keyPrefix}
}

// Get implements httpcache.Backend.
func (c *Cache) Get(ctx context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get failed for key %q: %w", key, err)
	}
	entry, err := httpcache.DecodeEntry(raw)
	if err != nil {
		return nil, false, fmt.Errorf("redis: decoding entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements httpcache.Backend. A ttl of httpcache.NoTTL stores the
// entry without expiration, relying on Delete/Clear or Redis's own
// eviction policy.
func (c *Cache) Set(ctx context.Context, key string, entry *httpcache.CacheEntry, ttl time.Duration) error {
	raw, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("redis: encoding entry for key %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.cacheKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: delete failed for key %q: %w", key, err)
	}
	return nil
}

// Clear implements httpcache.Backend by scanning and deleting every key
// under this Cache's prefix, leaving unrelated keys in the database
// untouched.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: clear scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: clear delete failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) cacheKey(key string) string {
	return c.prefix + key
}
