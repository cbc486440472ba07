package httpcache

import (
	"context"
	"time"
)

// Backend is the storage contract every cache tier must satisfy.
// Get returns (nil, false, nil) for both a missing key and a key
// expired by the backend's own TTL. Set overwrites; ttl is an optional hint
// a backend without native TTL support may ignore (the freshness engine
// remains authoritative either way). Delete is idempotent — deleting an
// absent key is not an error. Clear removes everything the backend holds
// under this cache's namespace. Implementations must raise only on
// infrastructure failure, never for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) (entry *CacheEntry, ok bool, err error)
	Set(ctx context.Context, key string, entry *CacheEntry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// NoTTL signals that an entry should be stored without an expiration hint.
const NoTTL time.Duration = 0
