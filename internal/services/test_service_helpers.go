package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcq-genie/mcq-service/internal/events"
	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
)

// lockSession acquires the per-session mutation lock and returns the unlock
// function.
func (s *testService) lockSession(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *testService) getSession(ctx context.Context, id string) (*models.TestSession, error) {
	session, err := s.repo.Session().GetByIDWithResult(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// checkWritable rejects mutations on terminal sessions. An active session
// whose deadline already passed is closed out as expired before the caller's
// mutation is refused. Caller must hold the session lock.
func (s *testService) checkWritable(ctx context.Context, session *models.TestSession, now time.Time) error {
	switch session.Status {
	case models.SessionSubmitted:
		return ErrSessionSubmitted
	case models.SessionExpired:
		return ErrSessionExpired
	}

	if session.ExpiredAt(now) {
		if _, err := s.finalizeLocked(ctx, session, models.EndReasonTimeout, now); err != nil {
			s.logger.Error("Failed to expire overdue session", "test_id", session.ID, "error", err)
		}
		return ErrSessionExpired
	}

	return nil
}

// mergeAnswers folds a full answer map into the session, validating each
// entry against the question set.
func (s *testService) mergeAnswers(session *models.TestSession, submitted map[string]string) error {
	questions, err := session.QuestionSet()
	if err != nil {
		return err
	}
	answers, err := session.AnswerMap()
	if err != nil {
		return err
	}

	for questionID, optionID := range submitted {
		if _, ok := questions.Find(questionID); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
		}
		if !models.IsValidOptionID(optionID) {
			return fmt.Errorf("%w: %s", ErrInvalidOption, optionID)
		}
		answers[questionID] = optionID
	}

	return session.SetAnswerMap(answers)
}

// finalizeLocked moves an active session to its terminal status, scores it,
// and persists session and result atomically. Caller must hold the session
// lock.
func (s *testService) finalizeLocked(ctx context.Context, session *models.TestSession, reason models.EndReason, now time.Time) (*models.TestResult, error) {
	endedAt := now
	if reason == models.EndReasonTimeout && now.After(session.ExpiresAt) {
		endedAt = session.ExpiresAt
	}

	switch reason {
	case models.EndReasonTimeout:
		session.Status = models.SessionExpired
	default:
		session.Status = models.SessionSubmitted
	}
	session.SubmittedAt = &endedAt
	session.EndReason = &reason

	result, err := s.evaluator.Evaluate(ctx, session)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if err := tx.Result().Create(ctx, result); err != nil {
			return fmt.Errorf("failed to store result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch reason {
	case models.EndReasonTimeout:
		s.publishEvent(ctx, events.NewSessionExpiredEvent(session, endedAt))
	default:
		s.publishEvent(ctx, events.NewSessionSubmittedEvent(session, result))
	}

	s.logger.Info("Session finalized",
		"test_id", session.ID,
		"end_reason", reason,
		"score_percent", result.ScorePercent)

	return result, nil
}

// storeResultLocked scores a terminal session that somehow has no stored
// result yet. Caller must hold the session lock.
func (s *testService) storeResultLocked(ctx context.Context, session *models.TestSession) (*models.TestResult, error) {
	result, err := s.evaluator.Evaluate(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Result().Create(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store result: %w", err)
	}
	return result, nil
}

// expireOne closes a single overdue session under its lock, re-checking the
// status after acquisition. Returns false when the session turned terminal
// (or its deadline moved) between the sweep query and the lock.
func (s *testService) expireOne(ctx context.Context, id string) (bool, error) {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.getSession(ctx, id)
	if err != nil {
		return false, err
	}

	now := time.Now()
	if session.IsTerminal() || !session.ExpiredAt(now) {
		return false, nil
	}

	if _, err := s.finalizeLocked(ctx, session, models.EndReasonTimeout, now); err != nil {
		return false, err
	}
	return true, nil
}

// publishEvent publishes best-effort; a broker outage never fails the
// operation that triggered the event.
func (s *testService) publishEvent(ctx context.Context, event *events.TestEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTestEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

// ===== RESPONSE BUILDERS =====

func buildTestResponse(session *models.TestSession, questions models.QuestionSet) *TestResponse {
	return &TestResponse{
		TestID:     session.ID,
		Topic:      session.Topic,
		Difficulty: session.Difficulty,
		Status:     session.Status,
		Questions:  questions.Public(),
		TimeLimit:  session.TimeLimit,
		StartedAt:  session.StartedAt,
		ExpiresAt:  session.ExpiresAt,
	}
}

func buildResultResponse(session *models.TestSession, result *models.TestResult) (*TestResultResponse, error) {
	breakdown, err := result.QuestionResults()
	if err != nil {
		return nil, err
	}
	return &TestResultResponse{
		TestID:         result.SessionID,
		Topic:          result.Topic,
		TotalQuestions: result.TotalQuestions,
		CorrectCount:   result.CorrectCount,
		WrongCount:     result.WrongCount,
		ScorePercent:   result.ScorePercent,
		EndReason:      session.EndReason,
		CompletedAt:    result.CompletedAt,
		Breakdown:      breakdown,
	}, nil
}
