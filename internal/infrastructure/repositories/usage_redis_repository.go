package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
)

// maxIncrementRetries bounds optimistic-transaction retries when two
// sessions of the same principal race on Increment.
const maxIncrementRetries = 3

// UsageRedisRepository stores one JSON counter document per principal.
// Counters carry no TTL: windows self-heal on access and retention is an
// external concern.
type UsageRedisRepository struct {
	r         *redis.Client
	keyPrefix string
}

func NewUsageRedisRepository(r *redis.Client, keyPrefix string) *UsageRedisRepository {
	if keyPrefix == "" {
		keyPrefix = "usage"
	}
	return &UsageRedisRepository{r: r, keyPrefix: keyPrefix}
}

func (repo *UsageRedisRepository) key(principalID string) string {
	return repo.keyPrefix + ":" + principalID
}

func (repo *UsageRedisRepository) Get(ctx context.Context, principalID string) (*usage.Counter, error) {
	raw, err := repo.r.Get(ctx, repo.key(principalID)).Bytes()
	if err == redis.Nil {
		return nil, ports.ErrUsageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get usage: %w", err)
	}
	var counter usage.Counter
	if err := json.Unmarshal(raw, &counter); err != nil {
		return nil, fmt.Errorf("decode usage counter: %w", err)
	}
	return &counter, nil
}

func (repo *UsageRedisRepository) Save(ctx context.Context, counter *usage.Counter) error {
	raw, err := json.Marshal(counter)
	if err != nil {
		return fmt.Errorf("encode usage counter: %w", err)
	}
	if err := repo.r.Set(ctx, repo.key(counter.PrincipalID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set usage: %w", err)
	}
	return nil
}

// Increment applies rollover-and-increment as a conditional update: the
// key is WATCHed, the new document is written in a transaction, and the
// whole step retries when a concurrent writer invalidates it.
func (repo *UsageRedisRepository) Increment(ctx context.Context, principalID string, now time.Time) (*usage.Counter, error) {
	key := repo.key(principalID)
	var updated *usage.Counter

	txn := func(tx *redis.Tx) error {
		counter := usage.NewCounter(principalID, now)
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(raw, counter); err != nil {
				return fmt.Errorf("decode usage counter: %w", err)
			}
		}
		counter.Rollover(now)
		counter.Increment()
		out, err := json.Marshal(counter)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = counter
		}
		return err
	}

	for attempt := 0; attempt < maxIncrementRetries; attempt++ {
		err := repo.r.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, fmt.Errorf("redis increment usage: %w", err)
	}
	return nil, fmt.Errorf("redis increment usage: %w", redis.TxFailedErr)
}
