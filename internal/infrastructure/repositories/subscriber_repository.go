package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smartstudia/smartstudia/internal/infrastructure/db"
)

// SubscriberRepository reads the plan of a principal from the
// subscribers table, which the external payment flow keeps in sync.
type SubscriberRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

func NewSubscriberRepository(database *db.Database, logger *logrus.Logger) *SubscriberRepository {
	return &SubscriberRepository{db: database, logger: logger}
}

// IsUpgraded reports whether the principal has an active upgraded plan.
// Unknown principals are standard tier; an expired upgrade counts as
// standard.
func (repo *SubscriberRepository) IsUpgraded(ctx context.Context, principalID string) (bool, error) {
	var upgraded bool
	query := `SELECT plan = 'upgraded' AND (expires_at IS NULL OR expires_at > NOW())
		FROM subscribers WHERE principal_id = $1`
	err := repo.db.DB.GetContext(ctx, &upgraded, query, principalID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query subscriber plan: %w", err)
	}
	return upgraded, nil
}
