package artworkmodule

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	resolutionTTL     = 5 * time.Minute
	resolutionCleanup = 10 * time.Minute
)

// ResolutionCache memoizes resolution results per entity. Entries expire
// on their own after the TTL; uploads, removals, and filesystem changes
// invalidate eagerly so readers never wait out a stale answer.
type ResolutionCache struct {
	entries *gocache.Cache
}

// NewResolutionCache creates an empty resolution cache
func NewResolutionCache() *ResolutionCache {
	return &ResolutionCache{
		entries: gocache.New(resolutionTTL, resolutionCleanup),
	}
}

// resolutionKey builds the cache key for one owner's artwork slot
func resolutionKey(owner OwnerType, ownerID string) string {
	return string(owner) + ":" + ownerID
}

// Get returns the cached resolution for key, if fresh
func (c *ResolutionCache) Get(key string) (*Resolved, bool) {
	if cached, found := c.entries.Get(key); found {
		return cached.(*Resolved), true
	}
	return nil, false
}

// Set stores a resolution result
func (c *ResolutionCache) Set(key string, resolved *Resolved) {
	c.entries.Set(key, resolved, gocache.DefaultExpiration)
}

// Invalidate drops one entity's cached resolution
func (c *ResolutionCache) Invalidate(key string) {
	c.entries.Delete(key)
}

// InvalidateAll drops every cached resolution; used when the artwork
// directory changes under us.
func (c *ResolutionCache) InvalidateAll() {
	c.entries.Flush()
}
