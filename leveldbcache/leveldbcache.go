// Package leveldbcache provides an httpcache.Backend backed by
// github.com/syndtr/goleveldb, an embedded ordered key/value store.
package leveldbcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cachetier/httpcache"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

// Cache is an httpcache.Backend backed by an on-disk LevelDB database.
type Cache struct {
	db *leveldb.DB
}

var _ httpcache.Backend = (*Cache)(nil)

// New opens (or creates) a LevelDB database at path and returns a Cache
// over it.
func New(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbcache: opening %q: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// NewWithDB returns a Cache using the provided, already-open leveldb.DB.
func NewWithDB(db *leveldb.DB) *Cache {
	return &Cache{db: db}
}

// Get implements httpcache.Backend.
func (c *Cache) Get(_ context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	raw, err := c.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbcache: get failed for key %q: %w", key, err)
	}
	entry, err := httpcache.DecodeEntry(raw)
	if err != nil {
		return nil, false, fmt.Errorf("leveldbcache: decoding entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements httpcache.Backend. ttl is accepted for interface
// compliance; LevelDB has no native expiry, so entries persist until
// Delete or Clear.
func (c *Cache) Set(_ context.Context, key string, entry *httpcache.CacheEntry, _ time.Duration) error {
	raw, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("leveldbcache: encoding entry for key %q: %w", key, err)
	}
	if err := c.db.Put([]byte(key), raw, nil); err != nil {
		return fmt.Errorf("leveldbcache: set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(_ context.Context, key string) error {
	if err := c.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbcache: delete failed for key %q: %w", key, err)
	}
	return nil
}

// Clear implements httpcache.Backend by iterating every key and deleting it
// in a single batch.
func (c *Cache) Clear(_ context.Context) error {
	var iter iterator.Iterator
	iter = c.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("leveldbcache: clear iteration failed: %w", err)
	}
	if err := c.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldbcache: clear failed: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
