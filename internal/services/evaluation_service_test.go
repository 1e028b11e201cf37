package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcq-genie/mcq-service/internal/models"
)

func threeQuestionSet() models.QuestionSet {
	return models.QuestionSet{
		{
			ID:   "q_1",
			Text: "First question",
			Options: []models.Option{
				{ID: "A", Text: "a1"}, {ID: "B", Text: "b1"}, {ID: "C", Text: "c1"}, {ID: "D", Text: "d1"},
			},
			CorrectOption: "A",
		},
		{
			ID:   "q_2",
			Text: "Second question",
			Options: []models.Option{
				{ID: "A", Text: "a2"}, {ID: "B", Text: "b2"}, {ID: "C", Text: "c2"}, {ID: "D", Text: "d2"},
			},
			CorrectOption: "B",
		},
		{
			ID:   "q_3",
			Text: "Third question",
			Options: []models.Option{
				{ID: "A", Text: "a3"}, {ID: "B", Text: "b3"}, {ID: "C", Text: "c3"}, {ID: "D", Text: "d3"},
			},
			CorrectOption: "C",
		},
	}
}

func terminalSession(t *testing.T, status models.SessionStatus, answers map[string]string) *models.TestSession {
	t.Helper()

	now := time.Now()
	session := &models.TestSession{
		ID:          "test_eval",
		Topic:       "Go concurrency",
		Difficulty:  models.DifficultyMedium,
		Status:      status,
		TimeLimit:   180,
		StartedAt:   now.Add(-3 * time.Minute),
		ExpiresAt:   now,
		SubmittedAt: &now,
	}

	questionsJSON, err := threeQuestionSet().ToJSON()
	require.NoError(t, err)
	session.Questions = questionsJSON
	require.NoError(t, session.SetAnswerMap(answers))

	return session
}

func TestEvaluate_ScoresAnswers(t *testing.T) {
	svc := NewEvaluationService(slog.Default())

	// One right, one wrong, one unanswered.
	session := terminalSession(t, models.SessionSubmitted, map[string]string{
		"q_1": "A",
		"q_2": "D",
	})

	result, err := svc.Evaluate(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, "test_eval", result.SessionID)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 2, result.WrongCount)
	assert.InDelta(t, 33.33, result.ScorePercent, 0.01)

	breakdown, err := result.QuestionResults()
	require.NoError(t, err)
	require.Len(t, breakdown, 3)

	assert.True(t, breakdown[0].IsCorrect)
	assert.Equal(t, "A", breakdown[0].SelectedOption)

	assert.False(t, breakdown[1].IsCorrect)
	assert.Equal(t, "D", breakdown[1].SelectedOption)
	assert.Equal(t, "B", breakdown[1].CorrectOption)

	// Unanswered questions count as wrong and are labelled as such.
	assert.False(t, breakdown[2].IsCorrect)
	assert.Equal(t, models.UnansweredLabel, breakdown[2].SelectedOption)
}

func TestEvaluate_AllCorrect(t *testing.T) {
	svc := NewEvaluationService(slog.Default())

	session := terminalSession(t, models.SessionSubmitted, map[string]string{
		"q_1": "A",
		"q_2": "B",
		"q_3": "C",
	})

	result, err := svc.Evaluate(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 3, result.CorrectCount)
	assert.Equal(t, 0, result.WrongCount)
	assert.Equal(t, 100.0, result.ScorePercent)
}

func TestEvaluate_ExpiredSessionWithNoAnswers(t *testing.T) {
	svc := NewEvaluationService(slog.Default())

	session := terminalSession(t, models.SessionExpired, map[string]string{})

	result, err := svc.Evaluate(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CorrectCount)
	assert.Equal(t, 3, result.WrongCount)
	assert.Equal(t, 0.0, result.ScorePercent)

	breakdown, err := result.QuestionResults()
	require.NoError(t, err)
	for _, qr := range breakdown {
		assert.Equal(t, models.UnansweredLabel, qr.SelectedOption)
	}
}

func TestEvaluate_ActiveSessionRejected(t *testing.T) {
	svc := NewEvaluationService(slog.Default())

	session := terminalSession(t, models.SessionActive, map[string]string{"q_1": "A"})

	_, err := svc.Evaluate(context.Background(), session)
	assert.ErrorIs(t, err, ErrSessionNotTerminal)
}

func TestEvaluate_UsesSubmittedAtAsCompletion(t *testing.T) {
	svc := NewEvaluationService(slog.Default())

	submittedAt := time.Now().Add(-time.Hour)
	session := terminalSession(t, models.SessionSubmitted, nil)
	session.SubmittedAt = &submittedAt

	result, err := svc.Evaluate(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, result.CompletedAt.Equal(submittedAt))
}
