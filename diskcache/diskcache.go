// Package diskcache provides an httpcache.Backend backed by diskv, a
// disk-persisted key/value store layered over an in-memory LRU of its own.
package diskcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/cachetier/httpcache"
	"github.com/peterbourgon/diskv"
)

// Cache is an httpcache.Backend that stores entries as files under a base
// directory, using diskv's own in-memory cache to avoid a disk read on
// every hit.
type Cache struct {
	d *diskv.Diskv
}

var _ httpcache.Backend = (*Cache)(nil)

// New returns a Cache that stores entries under basePath.
func New(basePath string) *Cache {
	return &Cache{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return nil },
			CacheSizeMax: 100 * 1024 * 1024, // 100MB
		}),
	}
}

// NewWithDiskv returns a Cache using the provided Diskv as underlying
// storage, for callers that need a custom transform or compression.
func NewWithDiskv(d *diskv.Diskv) *Cache {
	return &Cache{d}
}

// Get implements httpcache.Backend. Diskv operations are synchronous and
// local; ctx is accepted for interface compliance only.
func (c *Cache) Get(_ context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	raw, err := c.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false, nil
	}
	entry, err := httpcache.DecodeEntry(raw)
	if err != nil {
		return nil, false, fmt.Errorf("diskcache: decoding entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements httpcache.Backend. ttl is accepted for interface
// compliance; diskv has no native per-record expiry, so entries persist
// until Delete or Clear. A caller needing eviction should layer this
// backend behind an httpcache.Tier with a TTL-aware faster tier.
func (c *Cache) Set(_ context.Context, key string, entry *httpcache.CacheEntry, _ time.Duration) error {
	raw, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("diskcache: encoding entry for key %q: %w", key, err)
	}
	if err := c.d.WriteStream(keyToFilename(key), bytes.NewReader(raw), true); err != nil {
		return fmt.Errorf("diskcache: set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(_ context.Context, key string) error {
	if err := c.d.Erase(keyToFilename(key)); err != nil {
		return fmt.Errorf("diskcache: delete failed for key %q: %w", key, err)
	}
	return nil
}

// Clear implements httpcache.Backend, removing every entry on disk.
func (c *Cache) Clear(_ context.Context) error {
	if err := c.d.EraseAll(); err != nil {
		return fmt.Errorf("diskcache: clear failed: %w", err)
	}
	return nil
}

func keyToFilename(key string) string {
	h := sha256.New()
	//nolint:errcheck // io.WriteString to hash.Hash never fails
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}
