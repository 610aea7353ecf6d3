package ports

import (
	"context"

	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
	"github.com/smartstudia/smartstudia/internal/core/domain/usage"
)

// TextGenerator abstracts the external generative-text API.
type TextGenerator interface {
	// Generate sends the prompt (with optional chat history) under the
	// given system instruction and returns the model text.
	Generate(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error)
	// Model names the underlying model for history records.
	Model() string
}

// GenerationRepository persists successful generations for the history
// page.
type GenerationRepository interface {
	Create(ctx context.Context, g *aitool.Generation) error
	ListByPrincipal(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error)
}

// GenerateResult is either a recorded generation or a quota denial.
// Exactly one of the two fields is set.
type GenerateResult struct {
	Generation *aitool.Generation `json:"generation,omitempty"`
	Denied     *usage.Decision    `json:"denied,omitempty"`
}

// AIToolService is the metered wrapper around the text generator: it
// checks quota, invokes the model, and records usage and history only on
// confirmed success.
type AIToolService interface {
	Generate(ctx context.Context, principalID string, req *aitool.GenerateRequest) (*GenerateResult, error)
	History(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error)
}
