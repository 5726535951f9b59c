package media

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	url     string
	expires time.Time
}

// CachingResolver wraps another Resolver with a TTL-based in-memory cache.
// The TTL must stay below the lifetime of the URLs the base resolver returns.
// Expired entries are swept on the miss path at most once per TTL.
type CachingResolver struct {
	base Resolver
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	items     map[string]cacheEntry
	lastSweep time.Time
}

// NewCachingResolver returns a Resolver that caches lookups for the provided TTL.
func NewCachingResolver(base Resolver, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingResolver{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// Resolve returns a cached URL when available, otherwise it delegates to the
// underlying resolver and stores the result. Failures are not cached.
func (c *CachingResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if c == nil || c.base == nil {
		return "", ErrResolverUnavailable
	}
	if ref == "" {
		return "", nil
	}

	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[ref]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.url, nil
	}

	url, err := c.base.Resolve(ctx, ref)

	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweepLocked(now)
	}
	if err != nil {
		delete(c.items, ref)
		return "", err
	}
	c.items[ref] = cacheEntry{url: url, expires: now.Add(c.ttl)}
	return url, nil
}

func (c *CachingResolver) sweepLocked(now time.Time) {
	for ref, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, ref)
		}
	}
	c.lastSweep = now
}
