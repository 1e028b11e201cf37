package repositories

import (
	"context"

	"github.com/mcq-genie/mcq-service/internal/models"
)

// ResultRepository interface for scored test results. Results are written
// once per session and never updated.
type ResultRepository interface {
	Create(ctx context.Context, result *models.TestResult) error
	GetBySession(ctx context.Context, sessionID string) (*models.TestResult, error)
	ExistsBySession(ctx context.Context, sessionID string) (bool, error)
}
