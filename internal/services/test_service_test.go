package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mcq-genie/mcq-service/internal/cache"
	"github.com/mcq-genie/mcq-service/internal/events"
	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

// ===== MOCKS =====

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.TestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByIDWithResult(ctx context.Context, id string) (*models.TestSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.TestSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.TestSession, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.TestSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.TestSession, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TestSession), args.Error(1)
}

func (m *MockSessionRepository) GetStats(ctx context.Context) (*repositories.SessionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.SessionStats), args.Error(1)
}

type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Create(ctx context.Context, result *models.TestResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) GetBySession(ctx context.Context, sessionID string) (*models.TestResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TestResult), args.Error(1)
}

func (m *MockResultRepository) ExistsBySession(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Create(ctx context.Context, session *models.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockChatRepository) GetByID(ctx context.Context, id string) (*models.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatSession), args.Error(1)
}

func (m *MockChatRepository) Update(ctx context.Context, session *models.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// MockRepository aggregates the entity mocks behind the Repository interface.
type MockRepository struct {
	sessionRepo *MockSessionRepository
	resultRepo  *MockResultRepository
	chatRepo    *MockChatRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		sessionRepo: &MockSessionRepository{},
		resultRepo:  &MockResultRepository{},
		chatRepo:    &MockChatRepository{},
	}
}

func (m *MockRepository) Session() repositories.SessionRepository { return m.sessionRepo }
func (m *MockRepository) Result() repositories.ResultRepository   { return m.resultRepo }
func (m *MockRepository) Chat() repositories.ChatRepository       { return m.chatRepo }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) Close() error                   { return nil }

// stubGenerator returns a fixed question set or error.
type stubGenerator struct {
	questions models.QuestionSet
	err       error
	calls     int
}

func (g *stubGenerator) Generate(ctx context.Context, topic string, count int, difficulty models.DifficultyLevel) (models.QuestionSet, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.questions, nil
}

// ===== HELPERS =====

func newTestServiceUnderTest(t *testing.T, repo *MockRepository, gen *stubGenerator) (TestService, *events.MockEventPublisher) {
	t.Helper()

	logger := slog.Default()
	publisher := events.NewMockEventPublisher(logger)
	svc := NewTestService(
		repo,
		gen,
		NewEvaluationService(logger),
		publisher,
		cache.NewNoopCache(),
		logger,
		utils.NewValidator(),
		TestServiceConfig{},
	)
	return svc, publisher
}

func activeSession(t *testing.T, expiresIn time.Duration, answers map[string]string) *models.TestSession {
	t.Helper()

	now := time.Now()
	session := &models.TestSession{
		ID:         "test_123",
		Topic:      "Go concurrency",
		Difficulty: models.DifficultyMedium,
		Status:     models.SessionActive,
		TimeLimit:  180,
		StartedAt:  now.Add(expiresIn - 3*time.Minute),
		ExpiresAt:  now.Add(expiresIn),
	}

	questionsJSON, err := threeQuestionSet().ToJSON()
	require.NoError(t, err)
	session.Questions = questionsJSON
	if answers == nil {
		answers = map[string]string{}
	}
	require.NoError(t, session.SetAnswerMap(answers))

	return session
}

// ===== GENERATION =====

func TestTestService_Generate(t *testing.T) {
	repo := newMockRepository()
	gen := &stubGenerator{questions: threeQuestionSet()}
	svc, publisher := newTestServiceUnderTest(t, repo, gen)

	repo.sessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		return s.Status == models.SessionActive &&
			s.Topic == "Go concurrency" &&
			s.TimeLimit == 180 && // 3 questions x 60s default
			s.ExpiresAt.After(s.StartedAt)
	})).Return(nil)

	resp, err := svc.Generate(context.Background(), &GenerateTestRequest{
		Topic:        "Go concurrency",
		NumQuestions: 3,
		Difficulty:   models.DifficultyMedium,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.TestID)
	assert.Equal(t, models.SessionActive, resp.Status)
	require.Len(t, resp.Questions, 3)

	// Answer key never leaves the service.
	for _, q := range resp.Questions {
		assert.Empty(t, q.CorrectOption)
		assert.Empty(t, q.Explanation)
	}

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventTestGenerated, publisher.Events[0].Type)

	repo.sessionRepo.AssertExpectations(t)
}

func TestTestService_Generate_ExplicitTimeLimit(t *testing.T) {
	repo := newMockRepository()
	gen := &stubGenerator{questions: threeQuestionSet()}
	svc, _ := newTestServiceUnderTest(t, repo, gen)

	repo.sessionRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		return s.TimeLimit == 600
	})).Return(nil)

	_, err := svc.Generate(context.Background(), &GenerateTestRequest{
		Topic:        "Go concurrency",
		NumQuestions: 3,
		Difficulty:   models.DifficultyEasy,
		TimeLimit:    600,
	})
	require.NoError(t, err)
	repo.sessionRepo.AssertExpectations(t)
}

func TestTestService_Generate_GeneratorFailure(t *testing.T) {
	repo := newMockRepository()
	gen := &stubGenerator{err: assert.AnError}
	svc, publisher := newTestServiceUnderTest(t, repo, gen)

	_, err := svc.Generate(context.Background(), &GenerateTestRequest{
		Topic:        "Go concurrency",
		NumQuestions: 3,
		Difficulty:   models.DifficultyMedium,
	})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Empty(t, publisher.Events)

	// Nothing is persisted when generation fails.
	repo.sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTestService_Generate_ValidationFailure(t *testing.T) {
	repo := newMockRepository()
	gen := &stubGenerator{questions: threeQuestionSet()}
	svc, _ := newTestServiceUnderTest(t, repo, gen)

	tests := []struct {
		name string
		req  *GenerateTestRequest
	}{
		{
			name: "topic too short",
			req:  &GenerateTestRequest{Topic: "Go", NumQuestions: 3, Difficulty: models.DifficultyEasy},
		},
		{
			name: "too many questions",
			req:  &GenerateTestRequest{Topic: "Go concurrency", NumQuestions: 50, Difficulty: models.DifficultyEasy},
		},
		{
			name: "bad difficulty",
			req:  &GenerateTestRequest{Topic: "Go concurrency", NumQuestions: 3, Difficulty: "extreme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}

	assert.Zero(t, gen.calls)
}

// ===== ANSWER SUBMISSION =====

func TestTestService_SubmitAnswer(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		answers, err := s.AnswerMap()
		return err == nil && answers["q_1"] == "A"
	})).Return(nil)

	resp, err := svc.SubmitAnswer(context.Background(), "test_123", &SubmitAnswerRequest{
		QuestionID:     "q_1",
		SelectedOption: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AnsweredCount)
	assert.Equal(t, 3, resp.TotalQuestions)
	assert.Equal(t, models.SessionActive, resp.Status)

	repo.sessionRepo.AssertExpectations(t)
}

func TestTestService_SubmitAnswer_UnknownQuestion(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)

	_, err := svc.SubmitAnswer(context.Background(), "test_123", &SubmitAnswerRequest{
		QuestionID:     "q_99",
		SelectedOption: "A",
	})
	assert.ErrorIs(t, err, ErrUnknownQuestion)
	repo.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTestService_SubmitAnswer_InvalidOption(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	_, err := svc.SubmitAnswer(context.Background(), "test_123", &SubmitAnswerRequest{
		QuestionID:     "q_1",
		SelectedOption: "E",
	})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTestService_SubmitAnswer_NotFound(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_missing").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.SubmitAnswer(context.Background(), "test_missing", &SubmitAnswerRequest{
		QuestionID:     "q_1",
		SelectedOption: "A",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTestService_SubmitAnswer_AlreadySubmitted(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	session.Status = models.SessionSubmitted
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)

	_, err := svc.SubmitAnswer(context.Background(), "test_123", &SubmitAnswerRequest{
		QuestionID:     "q_1",
		SelectedOption: "A",
	})
	assert.ErrorIs(t, err, ErrSessionSubmitted)
}

func TestTestService_SubmitAnswer_ExpiredOnTheClock(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestServiceUnderTest(t, repo, &stubGenerator{})

	// Still marked active but its deadline has already passed.
	session := activeSession(t, -time.Minute, map[string]string{"q_1": "A"})
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		return s.Status == models.SessionExpired && s.EndReason != nil && *s.EndReason == models.EndReasonTimeout
	})).Return(nil)
	repo.resultRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.TestResult) bool {
		// Answers given before the deadline still count.
		return r.CorrectCount == 1 && r.TotalQuestions == 3
	})).Return(nil)

	_, err := svc.SubmitAnswer(context.Background(), "test_123", &SubmitAnswerRequest{
		QuestionID:     "q_2",
		SelectedOption: "B",
	})
	assert.ErrorIs(t, err, ErrSessionExpired)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventSessionExpired, publisher.Events[0].Type)

	repo.sessionRepo.AssertExpectations(t)
	repo.resultRepo.AssertExpectations(t)
}

// ===== SUBMISSION AND FINALIZATION =====

func TestTestService_Submit(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		return s.Status == models.SessionSubmitted && s.SubmittedAt != nil &&
			s.EndReason != nil && *s.EndReason == models.EndReasonUser
	})).Return(nil)
	repo.resultRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Submit(context.Background(), "test_123", &SubmitTestRequest{
		Answers: map[string]string{
			"q_1": "A", // correct
			"q_2": "D", // wrong
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.CorrectCount)
	assert.Equal(t, 2, resp.WrongCount)
	assert.InDelta(t, 33.33, resp.ScorePercent, 0.01)
	require.NotNil(t, resp.EndReason)
	assert.Equal(t, models.EndReasonUser, *resp.EndReason)
	require.Len(t, resp.Breakdown, 3)
	assert.Equal(t, models.UnansweredLabel, resp.Breakdown[2].SelectedOption)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventSessionSubmitted, publisher.Events[0].Type)

	repo.sessionRepo.AssertExpectations(t)
	repo.resultRepo.AssertExpectations(t)
}

func TestTestService_Submit_RejectsBadAnswerMap(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)

	_, err := svc.Submit(context.Background(), "test_123", &SubmitTestRequest{
		Answers: map[string]string{"q_9": "A"},
	})
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	_, err = svc.Submit(context.Background(), "test_123", &SubmitTestRequest{
		Answers: map[string]string{"q_1": "Z"},
	})
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestTestService_Submit_Expired(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, -time.Second, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.sessionRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	repo.resultRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Submit(context.Background(), "test_123", &SubmitTestRequest{
		Answers: map[string]string{"q_1": "A"},
	})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestTestService_Finalize_Idempotent(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	session.Status = models.SessionSubmitted
	endReason := models.EndReasonUser
	session.EndReason = &endReason

	stored := &models.TestResult{
		SessionID:      "test_123",
		Topic:          session.Topic,
		TotalQuestions: 3,
		CorrectCount:   2,
		WrongCount:     1,
		ScorePercent:   66.67,
		CompletedAt:    time.Now(),
	}
	require.NoError(t, stored.SetQuestionResults([]models.QuestionResult{}))

	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.resultRepo.On("ExistsBySession", mock.Anything, "test_123").Return(true, nil)
	repo.resultRepo.On("GetBySession", mock.Anything, "test_123").Return(stored, nil)

	resp, err := svc.Finalize(context.Background(), "test_123", models.EndReasonUser)
	require.NoError(t, err)
	assert.Equal(t, 66.67, resp.ScorePercent)

	// No re-scoring, no duplicate result row, no duplicate event.
	repo.resultRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.Events)
}

func TestTestService_Finalize_TimesOutActiveSession(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, -time.Minute, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		return s.Status == models.SessionExpired
	})).Return(nil)
	repo.resultRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.Finalize(context.Background(), "test_123", models.EndReasonUser)
	require.NoError(t, err)

	// Reason is coerced to timeout because the deadline had passed.
	require.NotNil(t, resp.EndReason)
	assert.Equal(t, models.EndReasonTimeout, *resp.EndReason)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventSessionExpired, publisher.Events[0].Type)
}

// ===== READS =====

func TestTestService_Status_ReportsEffectiveExpiry(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, -time.Minute, map[string]string{"q_1": "A"})
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)

	resp, err := svc.Status(context.Background(), "test_123")
	require.NoError(t, err)

	assert.Equal(t, models.SessionExpired, resp.Status)
	assert.Equal(t, 0, resp.TimeRemaining)
	assert.Equal(t, 1, resp.AnsweredCount)

	// Reads never mutate the row; the sweeper owns that.
	repo.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTestService_GetResult_ActiveSession(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, time.Minute, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)

	_, err := svc.GetResult(context.Background(), "test_123")
	assert.ErrorIs(t, err, ErrSessionNotTerminal)
}

func TestTestService_History(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	scored := activeSession(t, time.Minute, nil)
	scored.Status = models.SessionSubmitted
	scored.Result = &models.TestResult{SessionID: scored.ID, ScorePercent: 80}

	unscored := activeSession(t, time.Minute, nil)
	unscored.ID = "test_456"

	repo.sessionRepo.On("List", mock.Anything, mock.Anything).
		Return([]*models.TestSession{scored, unscored}, int64(2), nil)

	resp, err := svc.History(context.Background(), repositories.SessionFilters{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.Tests, 2)
	require.NotNil(t, resp.Tests[0].ScorePercent)
	assert.Equal(t, 80.0, *resp.Tests[0].ScorePercent)
	assert.Nil(t, resp.Tests[1].ScorePercent)
}

// ===== EXPIRY SWEEP =====

func TestTestService_ExpireOverdue(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestServiceUnderTest(t, repo, &stubGenerator{})

	overdue := activeSession(t, -time.Minute, nil)
	repo.sessionRepo.On("ListExpired", mock.Anything, mock.Anything, 100).
		Return([]*models.TestSession{overdue}, nil)
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, overdue.ID).Return(overdue, nil)
	repo.sessionRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *models.TestSession) bool {
		return s.Status == models.SessionExpired
	})).Return(nil)
	repo.resultRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	closed, err := svc.ExpireOverdue(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	require.Len(t, publisher.Events, 1)
	assert.Equal(t, events.EventSessionExpired, publisher.Events[0].Type)
}

func TestTestService_ExpireOverdue_SkipsAlreadyClosed(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	// Closed between the sweep query and lock acquisition.
	closedSession := activeSession(t, -time.Minute, nil)
	repo.sessionRepo.On("ListExpired", mock.Anything, mock.Anything, 100).
		Return([]*models.TestSession{closedSession}, nil)

	alreadyDone := activeSession(t, -time.Minute, nil)
	alreadyDone.Status = models.SessionExpired
	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, closedSession.ID).Return(alreadyDone, nil)

	closed, err := svc.ExpireOverdue(context.Background(), 100)
	require.NoError(t, err)

	// A session that turned terminal under someone else's lock is skipped,
	// not counted as closed by this sweep.
	assert.Equal(t, 0, closed)

	repo.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	repo.resultRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ===== STATS =====

func TestTestService_Stats(t *testing.T) {
	repo := newMockRepository()
	svc, _ := newTestServiceUnderTest(t, repo, &stubGenerator{})

	repo.sessionRepo.On("GetStats", mock.Anything).Return(&repositories.SessionStats{
		TotalSessions: 12,
		StatusBreakdown: map[models.SessionStatus]int{
			models.SessionActive:    2,
			models.SessionSubmitted: 7,
			models.SessionExpired:   3,
		},
		AverageScore:      71.5,
		CompletedSessions: 10,
	}, nil)

	resp, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, resp.TotalTests)
	assert.Equal(t, 7, resp.StatusBreakdown[models.SessionSubmitted])
	assert.Equal(t, 71.5, resp.AverageScore)
	assert.Equal(t, 10, resp.CompletedTests)
}

// Finalizing a terminal session that lost its result row scores it again
// instead of failing.
func TestTestService_Finalize_TerminalWithoutResult(t *testing.T) {
	repo := newMockRepository()
	svc, publisher := newTestServiceUnderTest(t, repo, &stubGenerator{})

	session := activeSession(t, -time.Minute, map[string]string{"q_1": "A"})
	session.Status = models.SessionExpired
	endReason := models.EndReasonTimeout
	session.EndReason = &endReason
	submittedAt := session.ExpiresAt
	session.SubmittedAt = &submittedAt

	repo.sessionRepo.On("GetByIDWithResult", mock.Anything, "test_123").Return(session, nil)
	repo.resultRepo.On("ExistsBySession", mock.Anything, "test_123").Return(false, nil)
	repo.resultRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.TestResult) bool {
		return r.CorrectCount == 1 && r.TotalQuestions == 3
	})).Return(nil)

	resp, err := svc.Finalize(context.Background(), "test_123", models.EndReasonTimeout)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CorrectCount)

	// The session row itself is untouched and no fresh lifecycle event fires.
	repo.sessionRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.Events)

	repo.resultRepo.AssertExpectations(t)
}
