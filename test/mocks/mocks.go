package mocks

import (
	"context"
	"time"

	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
)

// FakeClock is a settable clock for window tests.
type FakeClock struct {
	Time time.Time
}

func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{Time: t} }

func (c *FakeClock) Now() time.Time { return c.Time }

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) { c.Time = c.Time.Add(d) }

// UsageRepositoryMock is a lightweight mock for UsageRepository.
type UsageRepositoryMock struct {
	GetFn       func(ctx context.Context, principalID string) (*usage.Counter, error)
	SaveFn      func(ctx context.Context, counter *usage.Counter) error
	IncrementFn func(ctx context.Context, principalID string, now time.Time) (*usage.Counter, error)
}

func (m *UsageRepositoryMock) Get(ctx context.Context, principalID string) (*usage.Counter, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, principalID)
	}
	return nil, ports.ErrUsageNotFound
}

func (m *UsageRepositoryMock) Save(ctx context.Context, counter *usage.Counter) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, counter)
	}
	return nil
}

func (m *UsageRepositoryMock) Increment(ctx context.Context, principalID string, now time.Time) (*usage.Counter, error) {
	if m.IncrementFn != nil {
		return m.IncrementFn(ctx, principalID, now)
	}
	counter := usage.NewCounter(principalID, now)
	counter.Increment()
	return counter, nil
}

// SubscriberRepositoryMock reports a fixed plan.
type SubscriberRepositoryMock struct {
	IsUpgradedFn func(ctx context.Context, principalID string) (bool, error)
}

func (m *SubscriberRepositoryMock) IsUpgraded(ctx context.Context, principalID string) (bool, error) {
	if m.IsUpgradedFn != nil {
		return m.IsUpgradedFn(ctx, principalID)
	}
	return false, nil
}

// RateLimiterServiceMock is a lightweight mock for RateLimiterService.
type RateLimiterServiceMock struct {
	LoadFn           func(ctx context.Context, principalID string) (*usage.Counter, error)
	CanMakeCallFn    func(ctx context.Context, principalID string) (*usage.Decision, error)
	RecordCallFn     func(ctx context.Context, principalID string) (*usage.Counter, error)
	ResetFn          func(ctx context.Context, principalID string) error
	RemainingQuotaFn func(ctx context.Context, principalID string) (*usage.Quota, error)
	PolicyForFn      func(ctx context.Context, principalID string) (usage.Policy, error)
}

func (m *RateLimiterServiceMock) Load(ctx context.Context, principalID string) (*usage.Counter, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx, principalID)
	}
	return usage.NewCounter(principalID, time.Now()), nil
}

func (m *RateLimiterServiceMock) CanMakeCall(ctx context.Context, principalID string) (*usage.Decision, error) {
	if m.CanMakeCallFn != nil {
		return m.CanMakeCallFn(ctx, principalID)
	}
	return &usage.Decision{Allowed: true}, nil
}

func (m *RateLimiterServiceMock) RecordCall(ctx context.Context, principalID string) (*usage.Counter, error) {
	if m.RecordCallFn != nil {
		return m.RecordCallFn(ctx, principalID)
	}
	return usage.NewCounter(principalID, time.Now()), nil
}

func (m *RateLimiterServiceMock) Reset(ctx context.Context, principalID string) error {
	if m.ResetFn != nil {
		return m.ResetFn(ctx, principalID)
	}
	return nil
}

func (m *RateLimiterServiceMock) RemainingQuota(ctx context.Context, principalID string) (*usage.Quota, error) {
	if m.RemainingQuotaFn != nil {
		return m.RemainingQuotaFn(ctx, principalID)
	}
	return &usage.Quota{}, nil
}

func (m *RateLimiterServiceMock) PolicyFor(ctx context.Context, principalID string) (usage.Policy, error) {
	if m.PolicyForFn != nil {
		return m.PolicyForFn(ctx, principalID)
	}
	return usage.StandardPolicy, nil
}

// TextGeneratorMock fakes the external model.
type TextGeneratorMock struct {
	GenerateFn func(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error)
	ModelName  string
}

func (m *TextGeneratorMock) Generate(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, system, history, prompt)
	}
	return "ok", nil
}

func (m *TextGeneratorMock) Model() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "fake-model"
}

// GenerationRepositoryMock is a lightweight mock for GenerationRepository.
type GenerationRepositoryMock struct {
	CreateFn          func(ctx context.Context, g *aitool.Generation) error
	ListByPrincipalFn func(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error)
}

func (m *GenerationRepositoryMock) Create(ctx context.Context, g *aitool.Generation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, g)
	}
	return nil
}

func (m *GenerationRepositoryMock) ListByPrincipal(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error) {
	if m.ListByPrincipalFn != nil {
		return m.ListByPrincipalFn(ctx, principalID, limit, offset)
	}
	return nil, nil
}

// AIToolServiceMock is a lightweight mock for AIToolService.
type AIToolServiceMock struct {
	GenerateFn func(ctx context.Context, principalID string, req *aitool.GenerateRequest) (*ports.GenerateResult, error)
	HistoryFn  func(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error)
}

func (m *AIToolServiceMock) Generate(ctx context.Context, principalID string, req *aitool.GenerateRequest) (*ports.GenerateResult, error) {
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, principalID, req)
	}
	return &ports.GenerateResult{Generation: &aitool.Generation{Result: "ok"}}, nil
}

func (m *AIToolServiceMock) History(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error) {
	if m.HistoryFn != nil {
		return m.HistoryFn(ctx, principalID, limit, offset)
	}
	return nil, nil
}
