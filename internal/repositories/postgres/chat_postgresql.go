package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
)

type ChatPostgreSQL struct {
	db *gorm.DB
}

func NewChatPostgreSQL(db *gorm.DB) repositories.ChatRepository {
	return &ChatPostgreSQL{db: db}
}

func (c ChatPostgreSQL) Create(ctx context.Context, session *models.ChatSession) error {
	return c.db.WithContext(ctx).Create(session).Error
}

func (c ChatPostgreSQL) GetByID(ctx context.Context, id string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := c.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (c ChatPostgreSQL) Update(ctx context.Context, session *models.ChatSession) error {
	return c.db.WithContext(ctx).Save(session).Error
}
