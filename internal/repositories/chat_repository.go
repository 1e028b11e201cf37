package repositories

import (
	"context"

	"github.com/mcq-genie/mcq-service/internal/models"
)

// ChatRepository interface for chat session persistence.
type ChatRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, id string) (*models.ChatSession, error)
	Update(ctx context.Context, session *models.ChatSession) error
}
