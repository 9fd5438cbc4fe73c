package media

import (
	"context"
	"sync"
	"time"

	"github.com/downytube/backend/internal/models"
)

type cacheEntry struct {
	video   models.SourceVideo
	expires time.Time
}

// CachingProvider wraps another Provider with a TTL-based in-memory cache.
type CachingProvider struct {
	base Provider
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProvider returns a Provider that caches lookups for the provided TTL.
func NewCachingProvider(base Provider, ttl time.Duration) *CachingProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProvider{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Lookup returns the cached descriptor when available, otherwise it delegates
// to the underlying provider and stores the result.
func (c *CachingProvider) Lookup(ctx context.Context, url string) (models.SourceVideo, error) {
	if c == nil || c.base == nil {
		return models.SourceVideo{}, ErrProviderUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[url]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.video, nil
	}

	video, err := c.base.Lookup(ctx, url)
	if err != nil {
		return models.SourceVideo{}, err
	}

	c.mu.Lock()
	c.items[url] = cacheEntry{video: video, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return video, nil
}
