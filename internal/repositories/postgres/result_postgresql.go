package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r ResultPostgreSQL) Create(ctx context.Context, result *models.TestResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r ResultPostgreSQL) GetBySession(ctx context.Context, sessionID string) (*models.TestResult, error) {
	var result models.TestResult
	if err := r.db.WithContext(ctx).First(&result, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r ResultPostgreSQL) ExistsBySession(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TestResult{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
