package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
)

// UsageMemoryRepository is the device-local fallback store used while
// the durable store is unreachable. It is private to this process and is
// never authoritative once the durable store recovers.
type UsageMemoryRepository struct {
	mu       sync.RWMutex
	counters map[string]usage.Counter
}

func NewUsageMemoryRepository() *UsageMemoryRepository {
	return &UsageMemoryRepository{counters: make(map[string]usage.Counter)}
}

func (repo *UsageMemoryRepository) Get(ctx context.Context, principalID string) (*usage.Counter, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	counter, ok := repo.counters[principalID]
	if !ok {
		return nil, ports.ErrUsageNotFound
	}
	copied := counter
	return &copied, nil
}

func (repo *UsageMemoryRepository) Save(ctx context.Context, counter *usage.Counter) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.counters[counter.PrincipalID] = *counter
	return nil
}

func (repo *UsageMemoryRepository) Increment(ctx context.Context, principalID string, now time.Time) (*usage.Counter, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	counter, ok := repo.counters[principalID]
	if !ok {
		counter = *usage.NewCounter(principalID, now)
	}
	counter.Rollover(now)
	counter.Increment()
	repo.counters[principalID] = counter
	copied := counter
	return &copied, nil
}

// Drop discards a principal's local counter, used when the durable store
// becomes reachable again and its value wins.
func (repo *UsageMemoryRepository) Drop(principalID string) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.counters, principalID)
}
