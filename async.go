package httpcache

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// AsyncBackend offloads a synchronous Backend's blocking operations onto a
// bounded worker pool, matching the cooperative-asynchronous scheduling
// profile: disk/remote-backed tiers suspend at each backend call
// instead of monopolizing a single goroutine, while memory-backed tiers are
// already cheap enough that the semaphore simply caps fan-out. Cancelling
// ctx before a slot is acquired returns ctx.Err() without ever touching the
// wrapped backend — so a cancelled call cannot leave a partial write.
type AsyncBackend struct {
	backend Backend
	sem     *semaphore.Weighted
}

// NewAsyncBackend wraps backend so that at most workers operations run
// concurrently. workers <= 0 means unbounded (no offload limiting).
func NewAsyncBackend(backend Backend, workers int) *AsyncBackend {
	if workers <= 0 {
		workers = 1 << 20 // effectively unbounded
	}
	return &AsyncBackend{backend: backend, sem: semaphore.NewWeighted(int64(workers))}
}

func (a *AsyncBackend) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	defer a.sem.Release(1)
	return a.backend.Get(ctx, key)
}

func (a *AsyncBackend) Set(ctx context.Context, key string, entry *CacheEntry, ttl time.Duration) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.sem.Release(1)
	return a.backend.Set(ctx, key, entry, ttl)
}

func (a *AsyncBackend) Delete(ctx context.Context, key string) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.sem.Release(1)
	return a.backend.Delete(ctx, key)
}

func (a *AsyncBackend) Clear(ctx context.Context) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.sem.Release(1)
	return a.backend.Clear(ctx)
}
