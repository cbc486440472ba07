package httpcache

import "context"

// Tier coordinates an ordered list of backends, position 0 being the
// fastest/nearest tier. Order is fixed at construction; there
// is no dynamic rebalancing.
type Tier struct {
	backends []Backend
}

// NewTier builds a coordinator over backends, ordered fastest-to-slowest.
// At least one backend must be supplied.
func NewTier(backends ...Backend) *Tier {
	return &Tier{backends: backends}
}

// Lookup iterates tiers in order and returns the first non-absent entry. If
// the winning tier is not position 0, the entry is read-repaired into every
// faster tier (best-effort; individual failures are logged and swallowed so
// that a slow tier's hiccup never turns a successful lookup into an error).
// A backend error during lookup is treated as absence and the walk
// continues to the next tier — a single flaky tier must not mask a hit in
// a healthier one.
func (t *Tier) Lookup(ctx context.Context, key string) (*CacheEntry, bool) {
	for i, backend := range t.backends {
		entry, ok, err := backend.Get(ctx, key)
		if err != nil {
			GetLogger().Warn("tier lookup failed, treating as miss", "tier", i, "key", key, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if i > 0 {
			t.readRepair(ctx, key, entry, i)
		}
		return entry, true
	}
	return nil, false
}

// readRepair writes entry into every tier faster than foundAt, amortizing a
// slow/remote lookup into subsequent in-memory hits.
func (t *Tier) readRepair(ctx context.Context, key string, entry *CacheEntry, foundAt int) {
	for i := 0; i < foundAt; i++ {
		if err := t.backends[i].Set(ctx, key, entry, NoTTL); err != nil {
			GetLogger().Warn("read-repair write failed", "tier", i, "key", key, "error", err)
		}
	}
}

// Store write-throughs entry to every tier in order. Individual tier
// failures are logged and swallowed (best-effort fan-out); the caller
// always gets a successful Store regardless of a slower tier's health.
func (t *Tier) Store(ctx context.Context, key string, entry *CacheEntry) {
	for i, backend := range t.backends {
		if err := backend.Set(ctx, key, entry, NoTTL); err != nil {
			GetLogger().Warn("tier store failed", "tier", i, "key", key, "error", err)
		}
	}
}

// Invalidate deletes key from every tier. Individual failures are logged
// and swallowed.
func (t *Tier) Invalidate(ctx context.Context, key string) {
	for i, backend := range t.backends {
		if err := backend.Delete(ctx, key); err != nil {
			GetLogger().Warn("tier invalidate failed", "tier", i, "key", key, "error", err)
		}
	}
}

// Clear clears every tier. Individual failures are logged and swallowed.
func (t *Tier) Clear(ctx context.Context) {
	for i, backend := range t.backends {
		if err := backend.Clear(ctx); err != nil {
			GetLogger().Warn("tier clear failed", "tier", i, "error", err)
		}
	}
}
