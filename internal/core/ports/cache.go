package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with per-entry TTLs. A cache miss is
// (nil, false, nil); errors mean the cache itself is unavailable and
// callers are expected to fall through to the primary store.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
