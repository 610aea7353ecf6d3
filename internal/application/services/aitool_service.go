package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
	"github.com/smartstudia/smartstudia/internal/core/ports"
)

// AIToolService meters calls to the external text generator. The quota
// check, the model call and the usage recording are deliberately three
// steps: a failed generation is never charged to the user.
type AIToolService struct {
	limiter   ports.RateLimiterService
	generator ports.TextGenerator
	history   ports.GenerationRepository
	clock     ports.Clock
	logger    *logrus.Logger
}

func NewAIToolService(limiter ports.RateLimiterService, generator ports.TextGenerator, history ports.GenerationRepository, clock ports.Clock, logger *logrus.Logger) *AIToolService {
	return &AIToolService{limiter: limiter, generator: generator, history: history, clock: clock, logger: logger}
}

func (s *AIToolService) Generate(ctx context.Context, principalID string, req *aitool.GenerateRequest) (*ports.GenerateResult, error) {
	if principalID == "" {
		return nil, ports.ErrInvalidPrincipal
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	decision, err := s.limiter.CanMakeCall(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"principal_id": principalID, "tool": req.Tool, "limit_type": decision.Tier}).Debug("generation denied by quota")
		}
		return &ports.GenerateResult{Denied: decision}, nil
	}

	prompt := req.TruncatedText()
	result, err := s.generator.Generate(ctx, req.Tool.SystemInstruction(), req.History, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate with %s: %w", req.Tool, err)
	}

	// The generation succeeded; usage is recorded even if persisting the
	// history entry fails afterward.
	if _, err := s.limiter.RecordCall(ctx, principalID); err != nil {
		if s.logger != nil {
			s.logger.WithField("principal_id", principalID).WithError(err).Warn("failed to record usage after successful generation")
		}
	}

	gen := &aitool.Generation{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Tool:        req.Tool,
		Prompt:      prompt,
		Result:      result,
		Model:       s.generator.Model(),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.history.Create(ctx, gen); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"principal_id": principalID, "tool": req.Tool}).WithError(err).Error("failed to store generation history")
		}
	}
	return &ports.GenerateResult{Generation: gen}, nil
}

func (s *AIToolService) History(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error) {
	if principalID == "" {
		return nil, ports.ErrInvalidPrincipal
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.history.ListByPrincipal(ctx, principalID, limit, offset)
}
