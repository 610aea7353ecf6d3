package repositories

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
	"github.com/smartstudia/smartstudia/internal/infrastructure/db"
)

// GenerationRepository persists AI generation history in Postgres.
type GenerationRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewGenerationRepository(database *db.Database, logger *logrus.Logger) *GenerationRepository {
	return &GenerationRepository{db: database, logger: logger}
}

func (repo *GenerationRepository) Create(ctx context.Context, g *aitool.Generation) error {
	query := `INSERT INTO ai_generations (id, principal_id, tool, prompt, result, model, created_at)
		VALUES (:id, :principal_id, :tool, :prompt, :result, :model, :created_at)`
	if _, err := repo.db.DB.NamedExecContext(ctx, query, g); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

func (repo *GenerationRepository) ListByPrincipal(ctx context.Context, principalID string, limit, offset int) ([]*aitool.Generation, error) {
	query := `SELECT id, principal_id, tool, prompt, result, model, created_at
		FROM ai_generations WHERE principal_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	generations := []*aitool.Generation{}
	if err := repo.db.DB.SelectContext(ctx, &generations, query, principalID, limit, offset); err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return generations, nil
}
