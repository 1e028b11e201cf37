package repositories

import (
	"time"

	"github.com/mcq-genie/mcq-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status     *models.SessionStatus   `json:"status"`
	Topic      *string                 `json:"topic"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	DateFrom   *time.Time              `json:"date_from"`
	DateTo     *time.Time              `json:"date_to"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	SortBy     string                  `json:"sort_by"`    // "created_at", "topic"
	SortOrder  string                  `json:"sort_order"` // "asc", "desc"
}

// ===== SHARED STATISTICS STRUCTS =====

type SessionStats struct {
	TotalSessions     int                          `json:"total_sessions"`
	StatusBreakdown   map[models.SessionStatus]int `json:"status_breakdown"`
	AverageScore      float64                      `json:"average_score"`
	CompletedSessions int                          `json:"completed_sessions"`
}
