// Package memcache provides an httpcache.Backend that uses gomemcache to
// store cached responses on one or more Memcached servers.
package memcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cachetier/httpcache"
)

// Cache is an httpcache.Backend backed by Memcached.
type Cache struct {
	client *memcache.Client
}

var _ httpcache.Backend = (*Cache)(nil)

// cacheKey prefixes a key to avoid collision with unrelated data stored in
// the same Memcached instance.
func cacheKey(key string) string {
	return "httpcache:" + key
}

// New returns a Cache using the provided memcache server(s) with equal
// weight. If a server is listed multiple times, it gets a proportional
// amount of weight.
func New(server ...string) *Cache {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient returns a Cache using the given memcache client.
func NewWithClient(client *memcache.Client) *Cache {
	return &Cache{client: client}
}

// Get implements httpcache.Backend. The context parameter is accepted for
// interface compliance; gomemcache does not propagate context cancellation.
func (c *Cache) Get(_ context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	item, err := c.client.Get(cacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcache: get failed for key %q: %w", key, err)
	}
	entry, err := httpcache.DecodeEntry(item.Value)
	if err != nil {
		return nil, false, fmt.Errorf("memcache: decoding entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements httpcache.Backend. ttl is rounded to the nearest whole
// second (at least one second), as the Memcached protocol expresses expiry
// in whole seconds; httpcache.NoTTL stores the entry without expiration.
func (c *Cache) Set(_ context.Context, key string, entry *httpcache.CacheEntry, ttl time.Duration) error {
	raw, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("memcache: encoding entry for key %q: %w", key, err)
	}

	item := &memcache.Item{
		Key:        cacheKey(key),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	}
	if err := c.client.Set(item); err != nil {
		return fmt.Errorf("memcache: set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(_ context.Context, key string) error {
	if err := c.client.Delete(cacheKey(key)); err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("memcache: delete failed for key %q: %w", key, err)
	}
	return nil
}

// Clear implements httpcache.Backend by flushing every key on every
// configured server. Memcached has no notion of a key-prefixed flush, so
// this necessarily affects the entire server, not just this Cache's keys.
func (c *Cache) Clear(_ context.Context) error {
	if err := c.client.FlushAll(); err != nil {
		return fmt.Errorf("memcache: clear failed: %w", err)
	}
	return nil
}

// expirationSeconds converts a ttl into the int32 seconds-from-now value
// the Memcached protocol expects, with 0 meaning "never expires".
func expirationSeconds(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	seconds := int64(ttl.Round(time.Second) / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	return int32(seconds)
}
