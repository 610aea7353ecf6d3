package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	config "github.com/smartstudia/smartstudia/configs"
	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
)

// Generator implements ports.TextGenerator with the official Gemini SDK.
type Generator struct {
	client    *genai.Client
	modelName string
	maxTokens int32
}

func NewGenerator(ctx context.Context, cfg *config.GeminiConfig) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Generator{client: client, modelName: modelName, maxTokens: int32(cfg.MaxOutputTokens)}, nil
}

func (g *Generator) Model() string { return g.modelName }

func (g *Generator) Close() error { return g.client.Close() }

// Generate runs one chat turn. The model object is created per call so
// concurrent requests with different system instructions never share
// mutable state.
func (g *Generator) Generate(ctx context.Context, system string, history []aitool.Message, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	if g.maxTokens > 0 {
		maxTokens := g.maxTokens
		model.MaxOutputTokens = &maxTokens
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	for _, m := range history {
		role := "user"
		if m.Role == "model" || m.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini send message: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return sb.String(), nil
}
