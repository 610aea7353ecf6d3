package ports

import (
	"context"
	"errors"
	"time"

	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
)

// ErrUsageNotFound is returned by UsageRepository.Get when no counter
// exists yet for a principal.
var ErrUsageNotFound = errors.New("usage counter not found")

// ErrInvalidPrincipal marks a contract violation: every limiter
// operation requires a non-empty principal ID.
var ErrInvalidPrincipal = errors.New("principal id is required")

// UsageRepository is the durable per-principal counter store. Increment
// must apply pending window rollover and the increment as close to
// atomically as the backend allows (a conditional update on Redis, a
// mutex on the in-process fallback); under same-principal races a slight
// overshoot is tolerated, the limiter shapes usage rather than enforcing
// a security boundary.
type UsageRepository interface {
	// Get returns the stored counter, or ErrUsageNotFound.
	Get(ctx context.Context, principalID string) (*usage.Counter, error)
	// Save persists the counter as-is.
	Save(ctx context.Context, counter *usage.Counter) error
	// Increment rolls stale windows, counts one call in both windows and
	// persists the result, creating the counter if absent.
	Increment(ctx context.Context, principalID string, now time.Time) (*usage.Counter, error)
}

// RateLimiterService gates and accounts for AI-tool invocations per
// principal. RecordCall is deliberately not gated internally: the
// metered external call happens between CanMakeCall and RecordCall and
// may fail, in which case the caller records nothing.
type RateLimiterService interface {
	// Load fetches or lazily creates the counter for a principal.
	Load(ctx context.Context, principalID string) (*usage.Counter, error)
	// CanMakeCall decides whether one more call is allowed right now.
	// It has no side effects; a denied decision carries the exhausted
	// tier and the wait until it resets.
	CanMakeCall(ctx context.Context, principalID string) (*usage.Decision, error)
	// RecordCall counts one confirmed invocation. Callers must have
	// checked CanMakeCall first.
	RecordCall(ctx context.Context, principalID string) (*usage.Counter, error)
	// Reset zeroes both counters and re-bases both windows to now.
	// Administrative use only.
	Reset(ctx context.Context, principalID string) error
	// RemainingQuota projects the counter for display without mutating it.
	RemainingQuota(ctx context.Context, principalID string) (*usage.Quota, error)
	// PolicyFor selects the standard or upgraded policy for a principal.
	PolicyFor(ctx context.Context, principalID string) (usage.Policy, error)
}

// SubscriberRepository reports whether a principal is on the upgraded
// (paid) plan. The table behind it is maintained by the external payment
// flow.
type SubscriberRepository interface {
	IsUpgraded(ctx context.Context, principalID string) (bool, error)
}
