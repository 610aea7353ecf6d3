package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	impl "github.com/smartstudia/smartstudia/internal/application/services"
	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
	"github.com/smartstudia/smartstudia/internal/infrastructure/repositories"
	tmocks "github.com/smartstudia/smartstudia/test/mocks"
)

// t0 is minute- and hour-aligned so window starts are predictable.
var t0 = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func newLimiter(clk *tmocks.FakeClock, subs ports.SubscriberRepository) (*impl.RateLimiterService, *repositories.UsageMemoryRepository) {
	store := repositories.NewUsageMemoryRepository()
	return impl.NewRateLimiterService(store, subs, clk, nil, nil), store
}

func TestCanMakeCall_FreshPrincipalAllowed(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, _ := newLimiter(clk, nil)
	dec, err := svc.CanMakeCall(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("fresh principal should be allowed")
	}
}

func TestCanMakeCall_MinuteLimitExhausted(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, _ := newLimiter(clk, nil)
	ctx := context.Background()

	for _, offset := range []time.Duration{0, 5 * time.Second, 10 * time.Second} {
		clk.Time = t0.Add(offset)
		if _, err := svc.RecordCall(ctx, "alice"); err != nil {
			t.Fatalf("record call: %v", err)
		}
	}

	clk.Time = t0.Add(15 * time.Second)
	dec, err := svc.CanMakeCall(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected denial after %d calls", usage.StandardPolicy.MinuteLimit)
	}
	if dec.Tier != usage.TierMinute {
		t.Fatalf("expected minute tier, got %s", dec.Tier)
	}
	if dec.ResetIn != 45*time.Second {
		t.Fatalf("expected 45s until reset, got %s", dec.ResetIn)
	}
}

func TestCanMakeCall_MinuteWindowRollsOver(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, store := newLimiter(clk, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordCall(ctx, "alice"); err != nil {
			t.Fatalf("record call: %v", err)
		}
	}

	clk.Time = t0.Add(61 * time.Second)
	dec, err := svc.CanMakeCall(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("minute window should have rolled over")
	}

	// CanMakeCall must not have written the rollover back.
	stored, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if stored.CallsThisMinute != 3 || !stored.MinuteWindowStart.Equal(t0) {
		t.Fatalf("canMakeCall mutated stored counter: %+v", stored)
	}

	// The next RecordCall applies the reset; the new window starts at
	// t0+60s, not at the observation instant t0+61s.
	counter, err := svc.RecordCall(ctx, "alice")
	if err != nil {
		t.Fatalf("record call: %v", err)
	}
	if counter.CallsThisMinute != 1 {
		t.Fatalf("expected minute count 1 after rollover, got %d", counter.CallsThisMinute)
	}
	if !counter.MinuteWindowStart.Equal(t0.Add(time.Minute)) {
		t.Fatalf("expected minute window start %s, got %s", t0.Add(time.Minute), counter.MinuteWindowStart)
	}
	if counter.CallsThisHour != 4 {
		t.Fatalf("hour window should still count all calls, got %d", counter.CallsThisHour)
	}
}

func TestCanMakeCall_HourLimitExhausted(t *testing.T) {
	clk := tmocks.NewFakeClock(t0.Add(30 * time.Minute))
	svc, store := newLimiter(clk, nil)
	ctx := context.Background()

	// 20 calls spread widely enough that the minute window never fills.
	if err := store.Save(ctx, &usage.Counter{
		PrincipalID:       "alice",
		CallsThisMinute:   1,
		CallsThisHour:     20,
		MinuteWindowStart: clk.Time.Add(-10 * time.Second),
		HourWindowStart:   t0,
	}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	dec, err := svc.CanMakeCall(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected hour tier denial")
	}
	if dec.Tier != usage.TierHour {
		t.Fatalf("expected hour tier, got %s", dec.Tier)
	}
	if dec.ResetIn <= 0 || dec.ResetIn > time.Hour {
		t.Fatalf("reset duration out of range: %s", dec.ResetIn)
	}
}

func TestCanMakeCall_BothExhaustedReportsLongerWait(t *testing.T) {
	clk := tmocks.NewFakeClock(t0.Add(59*time.Minute + 59*time.Second))
	svc, store := newLimiter(clk, nil)
	ctx := context.Background()

	// Hour window resets in 1s, minute window in 50s: the minute tier is
	// the honest wait to display.
	if err := store.Save(ctx, &usage.Counter{
		PrincipalID:       "alice",
		CallsThisMinute:   3,
		CallsThisHour:     20,
		MinuteWindowStart: clk.Time.Add(-10 * time.Second),
		HourWindowStart:   t0,
	}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	dec, err := svc.CanMakeCall(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed || dec.Tier != usage.TierMinute {
		t.Fatalf("expected minute tier (longer wait), got %+v", dec)
	}
	if dec.ResetIn != 50*time.Second {
		t.Fatalf("expected 50s, got %s", dec.ResetIn)
	}
}

func TestRecordCall_FutureWindowStartIsRebased(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, store := newLimiter(clk, nil)
	ctx := context.Background()

	// A device with a skewed clock wrote a window start 10 minutes ahead.
	if err := store.Save(ctx, &usage.Counter{
		PrincipalID:       "alice",
		CallsThisMinute:   3,
		CallsThisHour:     3,
		MinuteWindowStart: t0.Add(10 * time.Minute),
		HourWindowStart:   t0.Add(10 * time.Minute),
	}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	counter, err := svc.RecordCall(ctx, "alice")
	if err != nil {
		t.Fatalf("record call: %v", err)
	}
	if counter.CallsThisMinute != 1 || counter.CallsThisHour != 1 {
		t.Fatalf("future window should reset counts, got %d/%d", counter.CallsThisMinute, counter.CallsThisHour)
	}
	if !counter.MinuteWindowStart.Equal(t0) || !counter.HourWindowStart.Equal(t0) {
		t.Fatalf("window starts should re-base to now, got %s / %s", counter.MinuteWindowStart, counter.HourWindowStart)
	}
}

func TestWindowRollsRelativeToOwnStart(t *testing.T) {
	clk := tmocks.NewFakeClock(t0.Add(70 * time.Second))
	svc, store := newLimiter(clk, nil)
	ctx := context.Background()

	// Window began mid-minute at t0+30s. At t0+70s a calendar minute
	// boundary has passed but only 40s of the window have elapsed.
	if err := store.Save(ctx, &usage.Counter{
		PrincipalID:       "alice",
		CallsThisMinute:   3,
		CallsThisHour:     3,
		MinuteWindowStart: t0.Add(30 * time.Second),
		HourWindowStart:   t0,
	}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	dec, err := svc.CanMakeCall(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("window should not roll at the calendar boundary")
	}
	if dec.ResetIn != 20*time.Second {
		t.Fatalf("expected 20s until the window's own boundary, got %s", dec.ResetIn)
	}
}

func TestLoad_IsIdempotent(t *testing.T) {
	clk := tmocks.NewFakeClock(t0.Add(42 * time.Second))
	svc, _ := newLimiter(clk, nil)
	ctx := context.Background()

	first, err := svc.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := svc.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if *first != *second {
		t.Fatalf("loads differ: %+v vs %+v", first, second)
	}
	if !first.MinuteWindowStart.Equal(t0) || !first.HourWindowStart.Equal(t0.Truncate(time.Hour)) {
		t.Fatalf("window starts should floor to boundaries, got %+v", first)
	}
}

func TestRemainingQuota_UpgradedTier(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	subs := &tmocks.SubscriberRepositoryMock{IsUpgradedFn: func(ctx context.Context, id string) (bool, error) { return true, nil }}
	svc, _ := newLimiter(clk, subs)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.RecordCall(ctx, "bob"); err != nil {
			t.Fatalf("record call: %v", err)
		}
	}

	quota, err := svc.RemainingQuota(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quota.RemainingMinute != 5 || quota.RemainingHour != 95 {
		t.Fatalf("expected 5/95 remaining, got %d/%d", quota.RemainingMinute, quota.RemainingHour)
	}
}

func TestPolicyFor_TierSelection(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, _ := newLimiter(clk, &tmocks.SubscriberRepositoryMock{})
	policy, err := svc.PolicyFor(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy != usage.StandardPolicy {
		t.Fatalf("expected standard policy, got %+v", policy)
	}

	subs := &tmocks.SubscriberRepositoryMock{IsUpgradedFn: func(ctx context.Context, id string) (bool, error) { return true, nil }}
	svc, _ = newLimiter(clk, subs)
	policy, err = svc.PolicyFor(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy != usage.UpgradedPolicy {
		t.Fatalf("expected upgraded policy, got %+v", policy)
	}
	if usage.StandardPolicy.MinuteLimit > usage.UpgradedPolicy.MinuteLimit || usage.StandardPolicy.HourLimit > usage.UpgradedPolicy.HourLimit {
		t.Fatalf("standard limits must not exceed upgraded limits")
	}
}

func TestPolicyFor_LookupFailureFallsBackToStandard(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	subs := &tmocks.SubscriberRepositoryMock{IsUpgradedFn: func(ctx context.Context, id string) (bool, error) { return false, errors.New("db down") }}
	svc, _ := newLimiter(clk, subs)
	policy, err := svc.PolicyFor(context.Background(), "alice")
	if err != nil {
		t.Fatalf("lookup failure must not propagate: %v", err)
	}
	if policy != usage.StandardPolicy {
		t.Fatalf("expected standard fallback, got %+v", policy)
	}
}

func TestReset_ZeroesCountersAndRebasesWindows(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, store := newLimiter(clk, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordCall(ctx, "alice"); err != nil {
			t.Fatalf("record call: %v", err)
		}
	}

	clk.Time = t0.Add(30 * time.Second)
	if err := svc.Reset(ctx, "alice"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	counter, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if counter.CallsThisMinute != 0 || counter.CallsThisHour != 0 {
		t.Fatalf("reset should zero counters, got %+v", counter)
	}
	if !counter.MinuteWindowStart.Equal(clk.Time) || !counter.HourWindowStart.Equal(clk.Time) {
		t.Fatalf("reset should re-base windows to now, got %+v", counter)
	}
}

func TestOperations_RejectEmptyPrincipal(t *testing.T) {
	clk := tmocks.NewFakeClock(t0)
	svc, _ := newLimiter(clk, nil)
	ctx := context.Background()

	if _, err := svc.Load(ctx, ""); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("Load: expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := svc.CanMakeCall(ctx, ""); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("CanMakeCall: expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := svc.RecordCall(ctx, ""); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("RecordCall: expected ErrInvalidPrincipal, got %v", err)
	}
	if err := svc.Reset(ctx, ""); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("Reset: expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := svc.RemainingQuota(ctx, ""); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("RemainingQuota: expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := svc.PolicyFor(ctx, ""); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("PolicyFor: expected ErrInvalidPrincipal, got %v", err)
	}
}
