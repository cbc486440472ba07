package httpcache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory LRU+TTL backend: an
// ordered map capped at MaxSize. Reads expire lazily (a stored deadline
// compared against "now") and move the hit entry to the MRU position;
// writes insert/overwrite at MRU and evict the LRU entry once MaxSize is
// exceeded. A mutex guards every operation so concurrent callers observe a
// linearizable sequence.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = MRU, back = LRU
	maxSize    int
	defaultTTL time.Duration // 0 means no expiration by default
}

type memoryItem struct {
	key      string
	entry    *CacheEntry
	deadline time.Time // zero value means "never expires"
}

// NewMemoryCache returns a MemoryCache capped at maxSize entries. A
// maxSize <= 0 means unbounded. defaultTTL is applied to Set calls made
// with ttl == NoTTL; a defaultTTL of zero means entries never expire
// unless a non-zero ttl is given explicitly at Set time.
func NewMemoryCache(maxSize int, defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
	}
}

// Get returns the entry for key, expiring it lazily if its deadline has
// passed, and otherwise promoting it to the most-recently-used position.
func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}

	item := el.Value.(*memoryItem)
	if !item.deadline.IsZero() && time.Now().After(item.deadline) {
		c.removeElement(el)
		return nil, false, nil
	}

	c.order.MoveToFront(el)
	return item.entry, true, nil
}

// Set inserts or overwrites key at the MRU position, evicting the LRU
// entry if MaxSize is exceeded. ttl == NoTTL falls back to the configured
// defaultTTL; a ttl (or defaultTTL) of zero means the entry never expires.
func (c *MemoryCache) Set(_ context.Context, key string, entry *CacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == NoTTL {
		ttl = c.defaultTTL
	}

	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	if el, ok := c.items[key]; ok {
		el.Value = &memoryItem{key: key, entry: entry, deadline: deadline}
		c.order.MoveToFront(el)
		return nil
	}

	el := c.order.PushFront(&memoryItem{key: key, entry: entry, deadline: deadline})
	c.items[key] = el

	if c.maxSize > 0 {
		for len(c.items) > c.maxSize {
			c.evictLRU()
		}
	}
	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// Len reports the current number of entries, for tests and diagnostics.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) evictLRU() {
	back := c.order.Back()
	if back != nil {
		c.removeElement(back)
	}
}

// removeElement requires c.mu to already be held.
func (c *MemoryCache) removeElement(el *list.Element) {
	item := el.Value.(*memoryItem)
	delete(c.items, item.key)
	c.order.Remove(el)
}
