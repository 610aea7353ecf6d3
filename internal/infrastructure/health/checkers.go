package health

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"github.com/smartstudia/smartstudia/internal/core/ports"
	infraDB "github.com/smartstudia/smartstudia/internal/infrastructure/db"
)

type dbChecker struct{ db *infraDB.Database }

func (d *dbChecker) Name() string                    { return "database" }
func (d *dbChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

func NewDBChecker(db *infraDB.Database) ports.HealthChecker { return &dbChecker{db: db} }

type redisChecker struct{ client *redis.Client }

func (r *redisChecker) Name() string                    { return "redis" }
func (r *redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func NewRedisChecker(client *redis.Client) ports.HealthChecker {
	return &redisChecker{client: client}
}

// usageStoreChecker reports whether usage metering is running on the
// durable store or on the local fallback. The fallback keeps the service
// usable, so a degraded store is surfaced here rather than failing
// requests.
type usageStoreChecker struct {
	store interface{ Degraded() bool }
}

func (u *usageStoreChecker) Name() string { return "usage_store" }

func (u *usageStoreChecker) Check(ctx context.Context) error {
	if u.store.Degraded() {
		return errors.New("durable usage store unreachable, serving from local fallback")
	}
	return nil
}

func NewUsageStoreChecker(store interface{ Degraded() bool }) ports.HealthChecker {
	return &usageStoreChecker{store: store}
}
