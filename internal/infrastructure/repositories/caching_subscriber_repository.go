package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smartstudia/smartstudia/internal/core/ports"
)

func cacheSetSilently(c ports.Cache, ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.Set(ctx, key, b, ttl)
}

func cacheGet[T any](c ports.Cache, ctx context.Context, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// CachingSubscriberRepository decorates a SubscriberRepository with
// cache-aside. Plan changes propagate within the TTL, which is
// acceptable for tier selection.
type CachingSubscriberRepository struct {
	inner ports.SubscriberRepository
	cache ports.Cache
	ttl   time.Duration
}

func NewCachingSubscriberRepository(inner ports.SubscriberRepository, cache ports.Cache, ttl time.Duration) ports.SubscriberRepository {
	return &CachingSubscriberRepository{inner: inner, cache: cache, ttl: ttl}
}

func (c *CachingSubscriberRepository) IsUpgraded(ctx context.Context, principalID string) (bool, error) {
	key := "subscriber:upgraded:" + principalID
	if v, ok := cacheGet[bool](c.cache, ctx, key); ok {
		return *v, nil
	}
	upgraded, err := c.inner.IsUpgraded(ctx, principalID)
	if err == nil {
		cacheSetSilently(c.cache, ctx, key, upgraded, c.ttl)
	}
	return upgraded, err
}
