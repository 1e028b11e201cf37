package repositories

import (
	"context"
	"time"

	"github.com/mcq-genie/mcq-service/internal/models"
)

// SessionRepository interface for test session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *models.TestSession) error
	GetByIDWithResult(ctx context.Context, id string) (*models.TestSession, error)
	Update(ctx context.Context, session *models.TestSession) error
	List(ctx context.Context, filters SessionFilters) ([]*models.TestSession, int64, error)

	// ListExpired returns active sessions whose deadline passed before the
	// given instant.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.TestSession, error)

	GetStats(ctx context.Context) (*SessionStats, error)
}
