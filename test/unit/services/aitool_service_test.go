package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	impl "github.com/smartstudia/smartstudia/internal/application/services"
	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
	"github.com/smartstudia/smartstudia/internal/core/ports"
	tmocks "github.com/smartstudia/smartstudia/test/mocks"
)

func TestGenerate_DeniedRequestSkipsGenerator(t *testing.T) {
	generatorCalled := false
	recorded := false
	limiter := &tmocks.RateLimiterServiceMock{
		CanMakeCallFn: func(ctx context.Context, id string) (*usage.Decision, error) {
			return &usage.Decision{Tier: usage.TierMinute, ResetIn: 45 * time.Second}, nil
		},
		RecordCallFn: func(ctx context.Context, id string) (*usage.Counter, error) {
			recorded = true
			return &usage.Counter{}, nil
		},
	}
	generator := &tmocks.TextGeneratorMock{
		GenerateFn: func(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error) {
			generatorCalled = true
			return "", nil
		},
	}
	svc := impl.NewAIToolService(limiter, generator, &tmocks.GenerationRepositoryMock{}, tmocks.NewFakeClock(t0), nil)

	res, err := svc.Generate(context.Background(), "alice", &aitool.GenerateRequest{Tool: aitool.ToolSummary, Text: "la fotosíntesis"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Denied == nil || res.Generation != nil {
		t.Fatalf("expected a denied result, got %+v", res)
	}
	if res.Denied.Tier != usage.TierMinute || res.Denied.ResetIn != 45*time.Second {
		t.Fatalf("denial should carry the limiter's decision, got %+v", res.Denied)
	}
	if generatorCalled {
		t.Fatalf("generator must not run for a denied request")
	}
	if recorded {
		t.Fatalf("denied requests must not consume quota")
	}
}

func TestGenerate_FailedGenerationIsNotCharged(t *testing.T) {
	recorded := false
	limiter := &tmocks.RateLimiterServiceMock{
		RecordCallFn: func(ctx context.Context, id string) (*usage.Counter, error) {
			recorded = true
			return &usage.Counter{}, nil
		},
	}
	generator := &tmocks.TextGeneratorMock{
		GenerateFn: func(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error) {
			return "", errors.New("model unavailable")
		},
	}
	svc := impl.NewAIToolService(limiter, generator, &tmocks.GenerationRepositoryMock{}, tmocks.NewFakeClock(t0), nil)

	_, err := svc.Generate(context.Background(), "alice", &aitool.GenerateRequest{Tool: aitool.ToolChat, Text: "hola"})
	if err == nil {
		t.Fatalf("expected the generator error to propagate")
	}
	if recorded {
		t.Fatalf("a failed generation must not consume quota")
	}
}

func TestGenerate_SuccessRecordsUsageAndHistory(t *testing.T) {
	recorded := false
	var stored *aitool.Generation
	limiter := &tmocks.RateLimiterServiceMock{
		RecordCallFn: func(ctx context.Context, id string) (*usage.Counter, error) {
			recorded = true
			return &usage.Counter{PrincipalID: id, CallsThisMinute: 1, CallsThisHour: 1}, nil
		},
	}
	generator := &tmocks.TextGeneratorMock{
		GenerateFn: func(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error) {
			if system != aitool.ToolSummary.SystemInstruction() {
				t.Fatalf("wrong system instruction: %q", system)
			}
			return "resumen generado", nil
		},
	}
	history := &tmocks.GenerationRepositoryMock{
		CreateFn: func(ctx context.Context, g *aitool.Generation) error {
			stored = g
			return nil
		},
	}
	svc := impl.NewAIToolService(limiter, generator, history, tmocks.NewFakeClock(t0), nil)

	res, err := svc.Generate(context.Background(), "alice", &aitool.GenerateRequest{Tool: aitool.ToolSummary, Text: "la fotosíntesis"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Generation == nil || res.Denied != nil {
		t.Fatalf("expected a generation, got %+v", res)
	}
	if res.Generation.Result != "resumen generado" {
		t.Fatalf("unexpected result: %q", res.Generation.Result)
	}
	if !recorded {
		t.Fatalf("a successful generation must consume quota")
	}
	if stored == nil || stored.PrincipalID != "alice" || stored.Tool != aitool.ToolSummary {
		t.Fatalf("history entry missing or wrong: %+v", stored)
	}
	if !stored.CreatedAt.Equal(t0) {
		t.Fatalf("history entry should use the service clock, got %s", stored.CreatedAt)
	}
}

func TestGenerate_HistoryFailureDoesNotFailTheCall(t *testing.T) {
	history := &tmocks.GenerationRepositoryMock{
		CreateFn: func(ctx context.Context, g *aitool.Generation) error {
			return errors.New("db down")
		},
	}
	svc := impl.NewAIToolService(&tmocks.RateLimiterServiceMock{}, &tmocks.TextGeneratorMock{}, history, tmocks.NewFakeClock(t0), nil)

	res, err := svc.Generate(context.Background(), "alice", &aitool.GenerateRequest{Tool: aitool.ToolChat, Text: "hola"})
	if err != nil {
		t.Fatalf("history failure must not surface: %v", err)
	}
	if res.Generation == nil {
		t.Fatalf("expected a generation despite the history failure")
	}
}

func TestGenerate_TruncatesLongInput(t *testing.T) {
	var sentPrompt string
	generator := &tmocks.TextGeneratorMock{
		GenerateFn: func(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error) {
			sentPrompt = prompt
			return "ok", nil
		},
	}
	svc := impl.NewAIToolService(&tmocks.RateLimiterServiceMock{}, generator, &tmocks.GenerationRepositoryMock{}, tmocks.NewFakeClock(t0), nil)

	long := strings.Repeat("ñ", aitool.MaxInputChars+500)
	res, err := svc.Generate(context.Background(), "alice", &aitool.GenerateRequest{Tool: aitool.ToolSummary, Text: long})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len([]rune(sentPrompt)); got != aitool.MaxInputChars {
		t.Fatalf("prompt should truncate to %d chars, got %d", aitool.MaxInputChars, got)
	}
	if res.Generation.Prompt != sentPrompt {
		t.Fatalf("history should store the truncated prompt")
	}
}

func TestGenerate_RejectsInvalidRequests(t *testing.T) {
	svc := impl.NewAIToolService(&tmocks.RateLimiterServiceMock{}, &tmocks.TextGeneratorMock{}, &tmocks.GenerationRepositoryMock{}, tmocks.NewFakeClock(t0), nil)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "", &aitool.GenerateRequest{Tool: aitool.ToolChat, Text: "hola"}); !errors.Is(err, ports.ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal, got %v", err)
	}
	if _, err := svc.Generate(ctx, "alice", &aitool.GenerateRequest{Tool: "translate", Text: "hola"}); err == nil {
		t.Fatalf("unknown tool should be rejected")
	}
	if _, err := svc.Generate(ctx, "alice", &aitool.GenerateRequest{Tool: aitool.ToolChat}); err == nil {
		t.Fatalf("empty text should be rejected")
	}
}

func TestHistory_ClampsPagination(t *testing.T) {
	var gotLimit, gotOffset int
	history := &tmocks.GenerationRepositoryMock{
		ListByPrincipalFn: func(ctx context.Context, id string, limit, offset int) ([]*aitool.Generation, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	svc := impl.NewAIToolService(&tmocks.RateLimiterServiceMock{}, &tmocks.TextGeneratorMock{}, history, tmocks.NewFakeClock(t0), nil)

	if _, err := svc.History(context.Background(), "alice", 0, -3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 20 || gotOffset != 0 {
		t.Fatalf("expected clamped 20/0, got %d/%d", gotLimit, gotOffset)
	}

	if _, err := svc.History(context.Background(), "alice", 500, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 20 || gotOffset != 10 {
		t.Fatalf("oversized limit should clamp to the default, got %d/%d", gotLimit, gotOffset)
	}
}
