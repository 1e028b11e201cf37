package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s SessionPostgreSQL) Create(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s SessionPostgreSQL) GetByIDWithResult(ctx context.Context, id string) (*models.TestSession, error) {
	var session models.TestSession
	if err := s.db.WithContext(ctx).
		Preload("Result").
		First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) Update(ctx context.Context, session *models.TestSession) error {
	return s.db.WithContext(ctx).Save(session).Error
}

func (s SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.TestSession, int64, error) {
	var sessions []*models.TestSession
	var total int64

	// apply filter first
	query := s.db.WithContext(ctx).Model(&models.TestSession{})
	query = s.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = s.applyPaginationAndSort(query, filters)

	if err := query.Preload("Result").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s SessionPostgreSQL) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.TestSession, error) {
	var sessions []*models.TestSession
	query := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.SessionActive, now).
		Order("expires_at asc")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

func (s SessionPostgreSQL) GetStats(ctx context.Context) (*repositories.SessionStats, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.TestSession{}).Count(&total).Error; err != nil {
		return nil, err
	}

	statusBreakdown := make(map[models.SessionStatus]int)
	statuses := []models.SessionStatus{models.SessionActive, models.SessionSubmitted, models.SessionExpired}
	for _, status := range statuses {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.TestSession{}).
			Where("status = ?", status).
			Count(&count).Error; err != nil {
			return nil, err
		}
		statusBreakdown[status] = int(count)
	}

	var avgScore float64
	var completed int64
	s.db.WithContext(ctx).
		Model(&models.TestResult{}).
		Select("COALESCE(AVG(score_percent), 0), COUNT(*)").
		Row().Scan(&avgScore, &completed)

	return &repositories.SessionStats{
		TotalSessions:     int(total),
		StatusBreakdown:   statusBreakdown,
		AverageScore:      avgScore,
		CompletedSessions: int(completed),
	}, nil
}

// applyFilters applies common filters to a query
func (s SessionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Topic != nil {
		query = query.Where("topic ILIKE ?", "%"+*filters.Topic+"%")
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// sessionSortColumns whitelists the columns List may sort by. Sort input is
// never interpolated into SQL outside this map.
var sessionSortColumns = map[string]string{
	"created_at": "created_at",
	"topic":      "topic",
	"status":     "status",
	"expires_at": "expires_at",
}

// orderClause builds a safe ORDER BY fragment, falling back to created_at
// desc for unknown columns or orders.
func orderClause(sortBy, sortOrder string) string {
	column, ok := sessionSortColumns[sortBy]
	if !ok {
		column = "created_at"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return column + " " + sortOrder
}

// applyPaginationAndSort applies pagination and sorting to a query
func (s SessionPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	query = query.Order(orderClause(filters.SortBy, filters.SortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
