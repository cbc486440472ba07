// Package blobcache provides an httpcache.Backend implementation that uses
// the Go Cloud Development Kit (CDK) blob package for cloud-agnostic cache
// storage.
//
// Supports multiple cloud providers:
//   - Amazon S3
//   - Google Cloud Storage
//   - Azure Blob Storage
//   - In-memory (for testing)
//   - Local filesystem
//
// Example usage with S3:
//
//	import (
//	    "context"
//	    _ "gocloud.dev/blob/s3blob"
//	    "github.com/cachetier/httpcache/blobcache"
//	)
//
//	ctx := context.Background()
//	cache, err := blobcache.New(ctx, blobcache.Config{
//	    BucketURL: "s3://my-bucket?region=us-west-2",
//	    KeyPrefix: "httpcache/",
//	})
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/cachetier/httpcache"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Config holds the configuration for the blob cache.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g., "s3://bucket?region=us-west-2").
	BucketURL string

	// KeyPrefix is prepended to all cache keys (default: "cache/").
	KeyPrefix string

	// Timeout bounds a blob operation when ctx carries no deadline of its
	// own (default: 30s).
	Timeout time.Duration

	// Bucket is an optional pre-opened bucket (if nil, BucketURL is used).
	Bucket *blob.Bucket
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "cache/",
		Timeout:   30 * time.Second,
	}
}

// Cache is an httpcache.Backend that stores entries as blobs in a Go Cloud
// bucket.
type Cache struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

var _ httpcache.Backend = (*Cache)(nil)

// New opens the bucket named by config.BucketURL (or uses config.Bucket
// directly) and returns a Cache over it. Call Close to release resources
// when New opened the bucket itself.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("blobcache: either BucketURL or Bucket must be provided")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	if config.Bucket != nil {
		return &Cache{bucket: config.Bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
	}

	bucket, err := blob.OpenBucket(ctx, config.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("blobcache: opening bucket: %w", err)
	}
	return &Cache{bucket: bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout, ownsBucket: true}, nil
}

// NewWithBucket builds a Cache over an already-opened bucket. The caller
// remains responsible for closing it.
func NewWithBucket(bucket *blob.Bucket, keyPrefix string, timeout time.Duration) *Cache {
	if keyPrefix == "" {
		keyPrefix = DefaultConfig().KeyPrefix
	}
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Cache{bucket: bucket, keyPrefix: keyPrefix, timeout: timeout}
}

// cacheKey hashes key to a blob name, avoiding issues with characters cloud
// storage providers treat specially (slashes, percent signs, ...).
func (c *Cache) cacheKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return c.keyPrefix + hex.EncodeToString(hash[:])
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Get implements httpcache.Backend.
func (c *Cache) Get(ctx context.Context, key string) (*httpcache.CacheEntry, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reader, err := c.bucket.NewReader(ctx, c.cacheKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobcache: get failed for key %q: %w", key, err)
	}
	defer reader.Close() //nolint:errcheck // best effort cleanup, read error already handled

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("blobcache: read failed for key %q: %w", key, err)
	}

	entry, err := httpcache.DecodeEntry(raw)
	if err != nil {
		return nil, false, fmt.Errorf("blobcache: decoding entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

// Set implements httpcache.Backend. ttl is accepted for interface
// compliance; most blob stores have no native per-object expiry, so
// entries persist until Delete or Clear.
func (c *Cache) Set(ctx context.Context, key string, entry *httpcache.CacheEntry, _ time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("blobcache: encoding entry for key %q: %w", key, err)
	}

	writer, err := c.bucket.NewWriter(ctx, c.cacheKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobcache: creating writer for key %q: %w", key, err)
	}
	_, writeErr := writer.Write(raw)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobcache: writing entry for key %q: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobcache: closing writer for key %q: %w", key, closeErr)
	}
	return nil
}

// Delete implements httpcache.Backend.
func (c *Cache) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	err := c.bucket.Delete(ctx, c.cacheKey(key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobcache: delete failed for key %q: %w", key, err)
	}
	return nil
}

// Clear implements httpcache.Backend by listing and deleting every blob
// under this Cache's key prefix.
func (c *Cache) Clear(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	iter := c.bucket.List(&blob.ListOptions{Prefix: c.keyPrefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("blobcache: clear listing failed: %w", err)
		}
		if err := c.bucket.Delete(ctx, obj.Key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			return fmt.Errorf("blobcache: clear delete failed for %q: %w", obj.Key, err)
		}
	}
	return nil
}

// Close closes the bucket if it was opened by New.
func (c *Cache) Close() error {
	if c.ownsBucket {
		if err := c.bucket.Close(); err != nil {
			return fmt.Errorf("blobcache: closing bucket: %w", err)
		}
	}
	return nil
}
