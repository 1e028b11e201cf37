package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mcq-genie/mcq-service/internal/models"
)

// EvaluationService scores a finished test session against its answer key.
type EvaluationService interface {
	// Evaluate builds the scored result for a terminal session. Calling it on
	// a session that is still active is an error.
	Evaluate(ctx context.Context, session *models.TestSession) (*models.TestResult, error)
}

type evaluationService struct {
	logger *slog.Logger
}

func NewEvaluationService(logger *slog.Logger) EvaluationService {
	return &evaluationService{logger: logger}
}

func (s *evaluationService) Evaluate(ctx context.Context, session *models.TestSession) (*models.TestResult, error) {
	if !session.IsTerminal() {
		return nil, ErrSessionNotTerminal
	}

	questions, err := session.QuestionSet()
	if err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	answers, err := session.AnswerMap()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	breakdown := make([]models.QuestionResult, 0, len(questions))
	correct := 0

	for _, question := range questions {
		selected, answered := answers[question.ID]
		if !answered || selected == "" {
			selected = models.UnansweredLabel
		}

		isCorrect := selected == question.CorrectOption
		if isCorrect {
			correct++
		}

		breakdown = append(breakdown, models.QuestionResult{
			QuestionID:     question.ID,
			QuestionText:   question.Text,
			SelectedOption: selected,
			CorrectOption:  question.CorrectOption,
			IsCorrect:      isCorrect,
			Explanation:    question.Explanation,
		})
	}

	total := len(questions)
	score := 0.0
	if total > 0 {
		score = math.Round(float64(correct)/float64(total)*10000) / 100
	}

	completedAt := time.Now()
	if session.SubmittedAt != nil {
		completedAt = *session.SubmittedAt
	}

	result := &models.TestResult{
		SessionID:      session.ID,
		Topic:          session.Topic,
		TotalQuestions: total,
		CorrectCount:   correct,
		WrongCount:     total - correct,
		ScorePercent:   score,
		CompletedAt:    completedAt,
	}
	if err := result.SetQuestionResults(breakdown); err != nil {
		return nil, err
	}

	s.logger.Info("Session evaluated",
		"test_id", session.ID,
		"correct", correct,
		"total", total,
		"score_percent", score)

	return result, nil
}
