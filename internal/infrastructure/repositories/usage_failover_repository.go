package repositories

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
)

// FailoverUsageRepository prefers the durable store and degrades to the
// local in-process store when it is unreachable. Metering must fail open
// toward usable: store failures are absorbed here and only logged.
//
// On recovery the durable value wins; local counters written during the
// outage are discarded, not merged, to avoid double-counting.
type FailoverUsageRepository struct {
	durable  ports.UsageRepository
	local    *UsageMemoryRepository
	logger   *logrus.Logger
	degraded atomic.Bool
}

func NewFailoverUsageRepository(durable ports.UsageRepository, local *UsageMemoryRepository, logger *logrus.Logger) *FailoverUsageRepository {
	return &FailoverUsageRepository{durable: durable, local: local, logger: logger}
}

// Degraded reports whether the last durable-store access failed.
func (repo *FailoverUsageRepository) Degraded() bool {
	return repo.degraded.Load()
}

func (repo *FailoverUsageRepository) Get(ctx context.Context, principalID string) (*usage.Counter, error) {
	counter, err := repo.durable.Get(ctx, principalID)
	if err == nil || errors.Is(err, ports.ErrUsageNotFound) {
		repo.recovered(principalID)
		return counter, err
	}
	repo.degrade(principalID, err)
	return repo.local.Get(ctx, principalID)
}

func (repo *FailoverUsageRepository) Save(ctx context.Context, counter *usage.Counter) error {
	if err := repo.durable.Save(ctx, counter); err != nil {
		repo.degrade(counter.PrincipalID, err)
		return repo.local.Save(ctx, counter)
	}
	repo.recovered(counter.PrincipalID)
	return nil
}

func (repo *FailoverUsageRepository) Increment(ctx context.Context, principalID string, now time.Time) (*usage.Counter, error) {
	counter, err := repo.durable.Increment(ctx, principalID, now)
	if err != nil {
		repo.degrade(principalID, err)
		return repo.local.Increment(ctx, principalID, now)
	}
	repo.recovered(principalID)
	return counter, nil
}

func (repo *FailoverUsageRepository) degrade(principalID string, err error) {
	if repo.degraded.CompareAndSwap(false, true) && repo.logger != nil {
		repo.logger.WithField("principal_id", principalID).WithError(err).Warn("durable usage store unreachable; falling back to local store")
	}
}

func (repo *FailoverUsageRepository) recovered(principalID string) {
	if repo.degraded.CompareAndSwap(true, false) {
		if repo.logger != nil {
			repo.logger.Info("durable usage store reachable again; local fallback counters discarded")
		}
	}
	// Always drop the shadow copy so a stale fallback value can never be
	// served after a durable read.
	repo.local.Drop(principalID)
}
