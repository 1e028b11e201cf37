package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcq-genie/mcq-service/internal/cache"
	"github.com/mcq-genie/mcq-service/internal/events"
	"github.com/mcq-genie/mcq-service/internal/generator"
	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

// TestService owns the timed test session lifecycle: generation, answer
// collection, submission, and expiry.
type TestService interface {
	Generate(ctx context.Context, req *GenerateTestRequest) (*TestResponse, error)
	GetByID(ctx context.Context, id string) (*TestResponse, error)
	Status(ctx context.Context, id string) (*TestStatusResponse, error)
	SubmitAnswer(ctx context.Context, id string, req *SubmitAnswerRequest) (*TestStatusResponse, error)
	Submit(ctx context.Context, id string, req *SubmitTestRequest) (*TestResultResponse, error)

	// Finalize forces a terminal status and scores the session. It is
	// idempotent: finalizing an already-terminal session returns the stored
	// result unchanged.
	Finalize(ctx context.Context, id string, reason models.EndReason) (*TestResultResponse, error)

	GetResult(ctx context.Context, id string) (*TestResultResponse, error)
	History(ctx context.Context, filters repositories.SessionFilters) (*TestHistoryResponse, error)
	Stats(ctx context.Context) (*TestStatsResponse, error)

	// ExpireOverdue finalizes active sessions whose deadline has passed and
	// returns how many were closed. Called by the background sweeper.
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

// TestServiceConfig carries the tunables the service does not hard-code.
type TestServiceConfig struct {
	// SecondsPerQuestion is the time budget used when a request omits an
	// explicit time limit.
	SecondsPerQuestion int
	// ResultCacheTTL bounds how long scored results stay cached.
	ResultCacheTTL time.Duration
}

func (c *TestServiceConfig) applyDefaults() {
	if c.SecondsPerQuestion <= 0 {
		c.SecondsPerQuestion = 60
	}
	if c.ResultCacheTTL <= 0 {
		c.ResultCacheTTL = time.Hour
	}
}

// ===== REQUEST / RESPONSE TYPES =====

type GenerateTestRequest struct {
	Topic        string                 `json:"topic" validate:"required,min=3,max=200"`
	NumQuestions int                    `json:"num_questions" validate:"required,min=1,max=20"`
	Difficulty   models.DifficultyLevel `json:"difficulty" validate:"required,difficulty_level"`
	TimeLimit    int                    `json:"time_limit,omitempty" validate:"omitempty,min=30,max=7200"` // seconds
}

type SubmitAnswerRequest struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedOption string `json:"selected_answer" validate:"required,option_id"`
}

type SubmitTestRequest struct {
	Answers map[string]string `json:"answers"`
}

type TestResponse struct {
	TestID     string                 `json:"test_id"`
	Topic      string                 `json:"topic"`
	Difficulty models.DifficultyLevel `json:"difficulty"`
	Status     models.SessionStatus   `json:"status"`
	Questions  models.QuestionSet     `json:"questions"`
	TimeLimit  int                    `json:"time_limit"` // seconds
	StartedAt  time.Time              `json:"started_at"`
	ExpiresAt  time.Time              `json:"expires_at"`
}

type TestStatusResponse struct {
	TestID         string               `json:"test_id"`
	Status         models.SessionStatus `json:"status"`
	TimeRemaining  int                  `json:"time_remaining"` // seconds
	AnsweredCount  int                  `json:"answered_count"`
	TotalQuestions int                  `json:"total_questions"`
}

type TestResultResponse struct {
	TestID         string                  `json:"test_id"`
	Topic          string                  `json:"topic"`
	TotalQuestions int                     `json:"total_questions"`
	CorrectCount   int                     `json:"correct_answers"`
	WrongCount     int                     `json:"wrong_answers"`
	ScorePercent   float64                 `json:"score_percentage"`
	EndReason      *models.EndReason       `json:"end_reason,omitempty"`
	CompletedAt    time.Time               `json:"completed_at"`
	Breakdown      []models.QuestionResult `json:"detailed_results"`
}

type TestSummary struct {
	TestID       string                 `json:"test_id"`
	Topic        string                 `json:"topic"`
	Difficulty   models.DifficultyLevel `json:"difficulty"`
	Status       models.SessionStatus   `json:"status"`
	ScorePercent *float64               `json:"score_percentage,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

type TestHistoryResponse struct {
	Tests  []TestSummary `json:"tests"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type TestStatsResponse struct {
	TotalTests      int                          `json:"total_tests"`
	StatusBreakdown map[models.SessionStatus]int `json:"status_breakdown"`
	AverageScore    float64                      `json:"average_score"`
	CompletedTests  int                          `json:"completed_tests"`
}

// ===== SERVICE =====

type testService struct {
	repo      repositories.Repository
	generator generator.Generator
	evaluator EvaluationService
	publisher events.EventPublisher
	cache     cache.Cache
	logger    *slog.Logger
	opLog     *ServiceLogger
	validator *utils.Validator
	cfg       TestServiceConfig

	// locks serializes mutations per session id.
	locks sync.Map
}

func NewTestService(
	repo repositories.Repository,
	gen generator.Generator,
	evaluator EvaluationService,
	publisher events.EventPublisher,
	c cache.Cache,
	logger *slog.Logger,
	validator *utils.Validator,
	cfg TestServiceConfig,
) TestService {
	cfg.applyDefaults()
	return &testService{
		repo:      repo,
		generator: gen,
		evaluator: evaluator,
		publisher: publisher,
		cache:     c,
		logger:    logger,
		opLog:     NewServiceLogger(logger, "test_service"),
		validator: validator,
		cfg:       cfg,
	}
}

// ===== CORE OPERATIONS =====

func (s *testService) Generate(ctx context.Context, req *GenerateTestRequest) (*TestResponse, error) {
	s.logger.Info("Generating test",
		"topic", req.Topic,
		"num_questions", req.NumQuestions,
		"difficulty", req.Difficulty)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	questions, err := s.generator.Generate(ctx, req.Topic, req.NumQuestions, req.Difficulty)
	if err != nil {
		s.logger.Error("Question generation failed", "topic", req.Topic, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	timeLimit := req.TimeLimit
	if timeLimit == 0 {
		timeLimit = len(questions) * s.cfg.SecondsPerQuestion
	}

	now := time.Now()
	session := &models.TestSession{
		ID:         "test_" + uuid.NewString(),
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Status:     models.SessionActive,
		TimeLimit:  timeLimit,
		StartedAt:  now,
		ExpiresAt:  now.Add(time.Duration(timeLimit) * time.Second),
	}

	questionsJSON, err := questions.ToJSON()
	if err != nil {
		return nil, err
	}
	session.Questions = questionsJSON
	if err := session.SetAnswerMap(map[string]string{}); err != nil {
		return nil, err
	}

	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.publishEvent(ctx, events.NewTestGeneratedEvent(session, len(questions)))

	s.logger.Info("Test session created",
		"test_id", session.ID,
		"question_count", len(questions),
		"time_limit", timeLimit)

	return buildTestResponse(session, questions), nil
}

func (s *testService) GetByID(ctx context.Context, id string) (*TestResponse, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	questions, err := session.QuestionSet()
	if err != nil {
		return nil, err
	}

	return buildTestResponse(session, questions), nil
}

func (s *testService) Status(ctx context.Context, id string) (*TestStatusResponse, error) {
	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	questions, err := session.QuestionSet()
	if err != nil {
		return nil, err
	}
	answers, err := session.AnswerMap()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	status := session.Status
	if session.ExpiredAt(now) {
		// Deadline passed but the sweeper has not caught up yet; report the
		// effective status without mutating the row.
		status = models.SessionExpired
	}

	return &TestStatusResponse{
		TestID:         session.ID,
		Status:         status,
		TimeRemaining:  session.TimeRemaining(now),
		AnsweredCount:  len(answers),
		TotalQuestions: len(questions),
	}, nil
}

func (s *testService) SubmitAnswer(ctx context.Context, id string, req *SubmitAnswerRequest) (*TestStatusResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.checkWritable(ctx, session, now); err != nil {
		return nil, err
	}

	questions, err := session.QuestionSet()
	if err != nil {
		return nil, err
	}
	if _, ok := questions.Find(req.QuestionID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, req.QuestionID)
	}

	answers, err := session.AnswerMap()
	if err != nil {
		return nil, err
	}
	answers[req.QuestionID] = req.SelectedOption
	if err := session.SetAnswerMap(answers); err != nil {
		return nil, err
	}

	if err := s.repo.Session().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	return &TestStatusResponse{
		TestID:         session.ID,
		Status:         session.Status,
		TimeRemaining:  session.TimeRemaining(now),
		AnsweredCount:  len(answers),
		TotalQuestions: len(questions),
	}, nil
}

func (s *testService) Submit(ctx context.Context, id string, req *SubmitTestRequest) (resp *TestResultResponse, err error) {
	start := time.Now()
	defer func() { s.opLog.LogOperation(ctx, "submit", id, time.Since(start), err) }()

	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.checkWritable(ctx, session, now); err != nil {
		return nil, err
	}

	if len(req.Answers) > 0 {
		if err := s.mergeAnswers(session, req.Answers); err != nil {
			return nil, err
		}
	}

	result, err := s.finalizeLocked(ctx, session, models.EndReasonUser, now)
	if err != nil {
		return nil, err
	}

	return buildResultResponse(session, result)
}

func (s *testService) Finalize(ctx context.Context, id string, reason models.EndReason) (resp *TestResultResponse, err error) {
	start := time.Now()
	defer func() { s.opLog.LogOperation(ctx, "finalize", id, time.Since(start), err) }()

	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.IsTerminal() {
		stored, err := s.repo.Result().ExistsBySession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check result: %w", err)
		}
		if stored {
			result, err := s.repo.Result().GetBySession(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load result: %w", err)
			}
			return buildResultResponse(session, result)
		}
		// Terminal without a stored result: score it now.
		result, err := s.storeResultLocked(ctx, session)
		if err != nil {
			return nil, err
		}
		return buildResultResponse(session, result)
	}

	now := time.Now()
	if session.ExpiredAt(now) {
		reason = models.EndReasonTimeout
	}

	result, err := s.finalizeLocked(ctx, session, reason, now)
	if err != nil {
		return nil, err
	}

	return buildResultResponse(session, result)
}

func (s *testService) GetResult(ctx context.Context, id string) (*TestResultResponse, error) {
	cacheKey := "result:" + id
	var cached TestResultResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if !session.IsTerminal() {
		if !session.ExpiredAt(time.Now()) {
			return nil, ErrSessionNotTerminal
		}
		// Overdue but not yet swept: close it out so the result exists.
		return s.Finalize(ctx, id, models.EndReasonTimeout)
	}

	result, err := s.repo.Result().GetBySession(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	resp, err := buildResultResponse(session, result)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.ResultCacheTTL); err != nil {
		s.logger.Warn("Failed to cache result", "test_id", id, "error", err)
	}

	return resp, nil
}

func (s *testService) History(ctx context.Context, filters repositories.SessionFilters) (*TestHistoryResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	sessions, total, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]TestSummary, 0, len(sessions))
	for _, session := range sessions {
		summary := TestSummary{
			TestID:     session.ID,
			Topic:      session.Topic,
			Difficulty: session.Difficulty,
			Status:     session.Status,
			CreatedAt:  session.CreatedAt,
		}
		if session.Result != nil {
			score := session.Result.ScorePercent
			summary.ScorePercent = &score
		}
		summaries = append(summaries, summary)
	}

	return &TestHistoryResponse{
		Tests:  summaries,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

func (s *testService) Stats(ctx context.Context) (*TestStatsResponse, error) {
	stats, err := s.repo.Session().GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	return &TestStatsResponse{
		TotalTests:      stats.TotalSessions,
		StatusBreakdown: stats.StatusBreakdown,
		AverageScore:    stats.AverageScore,
		CompletedTests:  stats.CompletedSessions,
	}, nil
}

func (s *testService) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	sessions, err := s.repo.Session().ListExpired(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	closed := 0
	for _, stale := range sessions {
		expired, err := s.expireOne(ctx, stale.ID)
		if err != nil {
			s.logger.Error("Failed to expire session", "test_id", stale.ID, "error", err)
			continue
		}
		if expired {
			closed++
		}
	}

	return closed, nil
}
