package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
)

// RateLimiterService implements ports.RateLimiterService over a durable
// counter store with two fixed windows per principal.
type RateLimiterService struct {
	store    ports.UsageRepository
	subs     ports.SubscriberRepository
	clock    ports.Clock
	standard usage.Policy
	upgraded usage.Policy
	logger   *logrus.Logger
}

// RateLimiterConfig groups the policy limits. Zero values fall back to
// the product defaults (3/20 standard, 10/100 upgraded).
type RateLimiterConfig struct {
	StandardPerMinute int
	StandardPerHour   int
	UpgradedPerMinute int
	UpgradedPerHour   int
}

func NewRateLimiterService(store ports.UsageRepository, subs ports.SubscriberRepository, clock ports.Clock, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	standard := usage.StandardPolicy
	upgraded := usage.UpgradedPolicy
	if cfg != nil {
		if cfg.StandardPerMinute > 0 {
			standard.MinuteLimit = cfg.StandardPerMinute
		}
		if cfg.StandardPerHour > 0 {
			standard.HourLimit = cfg.StandardPerHour
		}
		if cfg.UpgradedPerMinute > 0 {
			upgraded.MinuteLimit = cfg.UpgradedPerMinute
		}
		if cfg.UpgradedPerHour > 0 {
			upgraded.HourLimit = cfg.UpgradedPerHour
		}
	}
	return &RateLimiterService{store: store, subs: subs, clock: clock, standard: standard, upgraded: upgraded, logger: logger}
}

// Load fetches the counter for a principal, creating and persisting a
// zeroed one on first use.
func (s *RateLimiterService) Load(ctx context.Context, principalID string) (*usage.Counter, error) {
	if principalID == "" {
		return nil, ports.ErrInvalidPrincipal
	}
	counter, err := s.store.Get(ctx, principalID)
	if err == nil {
		return counter, nil
	}
	if !errors.Is(err, ports.ErrUsageNotFound) {
		return nil, fmt.Errorf("load usage counter: %w", err)
	}
	counter = usage.NewCounter(principalID, s.clock.Now())
	if err := s.store.Save(ctx, counter); err != nil {
		return nil, fmt.Errorf("initialize usage counter: %w", err)
	}
	return counter, nil
}

// CanMakeCall evaluates the policy against the stored counter at the
// current instant. Stale windows are treated as empty without being
// written back; the physical reset happens on the next RecordCall.
func (s *RateLimiterService) CanMakeCall(ctx context.Context, principalID string) (*usage.Decision, error) {
	if principalID == "" {
		return nil, ports.ErrInvalidPrincipal
	}
	policy, err := s.PolicyFor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	counter, err := s.current(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return usage.Evaluate(counter, policy, s.clock.Now()), nil
}

// RecordCall counts one confirmed invocation, rolling stale windows
// first. It does not re-check the limits; the caller gates on
// CanMakeCall and records only after the metered call succeeded.
func (s *RateLimiterService) RecordCall(ctx context.Context, principalID string) (*usage.Counter, error) {
	if principalID == "" {
		return nil, ports.ErrInvalidPrincipal
	}
	counter, err := s.store.Increment(ctx, principalID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("record call: %w", err)
	}
	return counter, nil
}

// Reset zeroes both counters and re-bases both windows to now.
func (s *RateLimiterService) Reset(ctx context.Context, principalID string) error {
	if principalID == "" {
		return ports.ErrInvalidPrincipal
	}
	now := s.clock.Now()
	counter := &usage.Counter{PrincipalID: principalID, MinuteWindowStart: now, HourWindowStart: now}
	if err := s.store.Save(ctx, counter); err != nil {
		return fmt.Errorf("reset usage counter: %w", err)
	}
	if s.logger != nil {
		s.logger.WithField("principal_id", principalID).Info("usage counters reset")
	}
	return nil
}

// RemainingQuota projects the counter for display. Read-only.
func (s *RateLimiterService) RemainingQuota(ctx context.Context, principalID string) (*usage.Quota, error) {
	if principalID == "" {
		return nil, ports.ErrInvalidPrincipal
	}
	policy, err := s.PolicyFor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	counter, err := s.current(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return usage.Project(counter, policy, s.clock.Now()), nil
}

// PolicyFor selects the upgraded policy for paying subscribers. A failed
// subscription lookup falls back to the standard tier rather than
// blocking the call path.
func (s *RateLimiterService) PolicyFor(ctx context.Context, principalID string) (usage.Policy, error) {
	if principalID == "" {
		return usage.Policy{}, ports.ErrInvalidPrincipal
	}
	if s.subs == nil {
		return s.standard, nil
	}
	upgraded, err := s.subs.IsUpgraded(ctx, principalID)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("principal_id", principalID).WithError(err).Warn("subscription lookup failed; assuming standard tier")
		}
		return s.standard, nil
	}
	if upgraded {
		return s.upgraded, nil
	}
	return s.standard, nil
}

// current returns the stored counter, or a fresh unpersisted one when
// the principal has no usage yet. Reads never write.
func (s *RateLimiterService) current(ctx context.Context, principalID string) (*usage.Counter, error) {
	counter, err := s.store.Get(ctx, principalID)
	if err == nil {
		return counter, nil
	}
	if errors.Is(err, ports.ErrUsageNotFound) {
		return usage.NewCounter(principalID, s.clock.Now()), nil
	}
	return nil, fmt.Errorf("load usage counter: %w", err)
}
