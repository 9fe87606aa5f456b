package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/PabloGalante/tonal/internal/domain"
)

type cachedResult struct {
	value     string
	expiresAt time.Time // zero = no expiration
}

func (c cachedResult) expired(now time.Time) bool {
	return !c.expiresAt.IsZero() && now.After(c.expiresAt)
}

// ResultCache is a size-bounded in-process transform result cache. Expired
// entries are dropped lazily on read.
type ResultCache struct {
	cache *lru.Cache[string, cachedResult]
	now   func() time.Time
}

func NewResultCache(maxItems int) (*ResultCache, error) {
	cache, err := lru.New[string, cachedResult](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &ResultCache{cache: cache, now: time.Now}, nil
}

func (c *ResultCache) Get(_ context.Context, key string) (string, bool, error) {
	item, ok := c.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	if item.expired(c.now()) {
		c.cache.Remove(key)
		return "", false, nil
	}
	return item.value, true, nil
}

func (c *ResultCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	item := cachedResult{value: value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, item)
	return nil
}

func (c *ResultCache) Len() int {
	return c.cache.Len()
}

var _ domain.ResultCache = (*ResultCache)(nil)
