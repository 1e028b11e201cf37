package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
)

// ExportService produces downloadable reports of past test sessions.
type ExportService interface {
	ExportHistoryToExcel(ctx context.Context, filters repositories.SessionFilters) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportHistoryToExcel(ctx context.Context, filters repositories.SessionFilters) ([]byte, error) {
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 500
	}

	sessions, _, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Test History"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Test ID", "Topic", "Difficulty", "Status", "Started At", "Completed At",
		"Questions", "Correct", "Wrong", "Score (%)", "End Reason",
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, session := range sessions {
		row := s.sessionToRow(session)
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("History exported", "session_count", len(sessions))

	return buf.Bytes(), nil
}

func (s *exportService) sessionToRow(session *models.TestSession) []interface{} {
	row := []interface{}{
		session.ID,
		session.Topic,
		string(session.Difficulty),
		string(session.Status),
		session.StartedAt.Format("2006-01-02 15:04:05"),
	}

	if session.SubmittedAt != nil {
		row = append(row, session.SubmittedAt.Format("2006-01-02 15:04:05"))
	} else {
		row = append(row, "")
	}

	if session.Result != nil {
		row = append(row,
			session.Result.TotalQuestions,
			session.Result.CorrectCount,
			session.Result.WrongCount,
			session.Result.ScorePercent)
	} else {
		row = append(row, "", "", "", "")
	}

	if session.EndReason != nil {
		row = append(row, string(*session.EndReason))
	} else {
		row = append(row, "")
	}

	return row
}
