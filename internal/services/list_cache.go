package services

import (
	"context"
	"sync"
	"time"
)

// CachedCode is the caller-independent part of a listed code
type CachedCode struct {
	ID            string
	Content       string
	RemainingUses int
	CreatedAt     int64 // milliseconds since epoch
	CreatorID     string
}

// ListLoader rebuilds the shared listing from the store
type ListLoader func(ctx context.Context) ([]CachedCode, error)

// ListCache is a read-through snapshot of the active-code listing with a
// fixed TTL. Reads past the TTL reload without holding the lock, so
// concurrent misses may load twice; the last writer wins. Invalidate bumps
// the generation so a load that started before it is returned to its
// caller but never stored.
type ListCache struct {
	ttl  time.Duration
	load ListLoader
	now  func() time.Time

	mu          sync.RWMutex
	data        []CachedCode
	refreshedAt time.Time
	generation  uint64
}

func NewListCache(ttl time.Duration, load ListLoader) *ListCache {
	return &ListCache{
		ttl:  ttl,
		load: load,
		now:  time.Now,
	}
}

// Get returns the cached listing, reloading it when older than the TTL.
// The returned slice is shared and must not be modified.
func (c *ListCache) Get(ctx context.Context) ([]CachedCode, error) {
	now := c.now()

	c.mu.RLock()
	data, refreshedAt, generation := c.data, c.refreshedAt, c.generation
	c.mu.RUnlock()

	if !refreshedAt.IsZero() && now.Sub(refreshedAt) < c.ttl {
		return data, nil
	}

	fresh, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation == generation {
		c.data = fresh
		c.refreshedAt = now
	}
	c.mu.Unlock()

	return fresh, nil
}

// Invalidate forces the next Get to reload
func (c *ListCache) Invalidate() {
	c.mu.Lock()
	c.refreshedAt = time.Time{}
	c.generation++
	c.mu.Unlock()
}
