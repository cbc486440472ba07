// Package freecache provides a zero-GC-overhead httpcache.Backend backed by
// github.com/coocood/freecache, suitable for caching millions of entries
// with a fixed memory ceiling and automatic LRU eviction.
package freecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cachetier/httpcache"
	"github.com/coocood/freecache"
)

// Cache is an httpcache.Backend backed by a fixed-size freecache instance.
type Cache struct {
	cache *freecache.Cache
}

var _ httpcache.Backend = (*Cache)(nil)

// New creates a Cache with the given size in bytes (512KB minimum, enforced
// by freecache itself).
func New(size int) *Cache {
	return &Cache{cache: freecache.NewCache(size)}
}

// Get implements httpcache.Backend.
func (c *Cache) Get(_ context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	raw, err := c.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecache: get failed for key %q: %w", key, err)
	}
	entry, err := httpcache.DecodeEntry(raw)
	if err != nil {
		return nil, false, fmt.Errorf("freecache: decoding entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements httpcache.Backend. ttl is rounded to the nearest whole
// second (at least one second), as freecache's expiry granularity is
// seconds; httpcache.NoTTL never expires.
func (c *Cache) Set(_ context.Context, key string, entry *httpcache.CacheEntry, ttl time.Duration) error {
	raw, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("freecache: encoding entry for key %q: %w", key, err)
	}
	if err := c.cache.Set([]byte(key), raw, expirySeconds(ttl)); err != nil {
		return fmt.Errorf("freecache: set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

// Clear implements httpcache.Backend, evicting every entry.
func (c *Cache) Clear(_ context.Context) error {
	c.cache.Clear()
	return nil
}

// EntryCount returns the number of entries currently in the cache.
func (c *Cache) EntryCount() int64 {
	return c.cache.EntryCount()
}

// HitRate returns the ratio of cache hits to total lookups.
func (c *Cache) HitRate() float64 {
	return c.cache.HitRate()
}

func expirySeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	seconds := int(ttl.Round(time.Second) / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	return seconds
}
