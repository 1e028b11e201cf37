package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
	"github.com/mcq-genie/mcq-service/internal/services"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService   services.TestService
	exportService services.ExportService
	validator     *utils.Validator
}

func NewTestHandler(
	testService services.TestService,
	exportService services.ExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *TestHandler {
	return &TestHandler{
		BaseHandler:   NewBaseHandler(logger),
		testService:   testService,
		exportService: exportService,
		validator:     validator,
	}
}

// ===== TEST LIFECYCLE =====

// GenerateTest generates a new timed multiple-choice test
// @Summary Generate test
// @Description Generates a question set for a topic and opens a timed session
// @Tags tests
// @Accept json
// @Produce json
// @Param request body services.GenerateTestRequest true "Generation parameters"
// @Success 201 {object} services.TestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/tests [post]
func (h *TestHandler) GenerateTest(c *gin.Context) {
	h.LogRequest(c, "Generating test")

	var req services.GenerateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	resp, err := h.testService.Generate(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to generate test")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetTest retrieves a test session by ID
// @Summary Get test
// @Description Retrieves the question set and timing for a test session
// @Tags tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} services.TestResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	resp, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get test")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTestStatus reports the live status of a test session
// @Summary Get test status
// @Description Reports remaining time, answered count, and effective status
// @Tags tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} services.TestStatusResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tests/{id}/status [get]
func (h *TestHandler) GetTestStatus(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	resp, err := h.testService.Status(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get test status")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAnswer records a single answer on an active session
// @Summary Submit answer
// @Description Records or replaces the selected option for one question
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param request body services.SubmitAnswerRequest true "Answer"
// @Success 200 {object} services.TestStatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/v1/tests/{id}/answers [post]
func (h *TestHandler) SubmitAnswer(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	resp, err := h.testService.SubmitAnswer(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to submit answer")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitTest submits a test session for scoring
// @Summary Submit test
// @Description Merges any final answers, closes the session, and scores it
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param request body services.SubmitTestRequest false "Final answers"
// @Success 200 {object} services.TestResultResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/v1/tests/{id}/submit [post]
func (h *TestHandler) SubmitTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	h.LogRequest(c, "Submitting test", "test_id", id)

	var req services.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	resp, err := h.testService.Submit(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to submit test")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FinalizeTest forces a session into a terminal state
// @Summary Finalize test
// @Description Closes the session with the given reason; idempotent on terminal sessions
// @Tags tests
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param request body FinalizeTestRequest false "Finalize reason"
// @Success 200 {object} services.TestResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tests/{id}/finalize [post]
func (h *TestHandler) FinalizeTest(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req FinalizeTestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	reason := models.EndReasonUser
	switch req.Reason {
	case "", string(models.EndReasonUser):
	case string(models.EndReasonTimeout):
		reason = models.EndReasonTimeout
	default:
		h.RespondWithError(c, http.StatusBadRequest, "Invalid finalize reason", nil,
			"reason must be user_submit or timeout")
		return
	}

	resp, err := h.testService.Finalize(c.Request.Context(), id, reason)
	if err != nil {
		h.handleServiceError(c, err, "Failed to finalize test")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTestResult retrieves the scored result of a test session
// @Summary Get test result
// @Description Returns the per-question breakdown and score for a closed session
// @Tags tests
// @Produce json
// @Param id path string true "Test ID"
// @Success 200 {object} services.TestResultResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/tests/{id}/result [get]
func (h *TestHandler) GetTestResult(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	resp, err := h.testService.GetResult(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get test result")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ===== HISTORY AND EXPORT =====

// GetTestHistory lists past test sessions
// @Summary List test history
// @Description Lists test sessions with optional status, topic, and date filters
// @Tags tests
// @Produce json
// @Param status query string false "Filter by status"
// @Param topic query string false "Filter by topic substring"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} services.TestHistoryResponse
// @Router /api/v1/tests [get]
func (h *TestHandler) GetTestHistory(c *gin.Context) {
	filters, ok := h.parseHistoryFilters(c)
	if !ok {
		return
	}

	resp, err := h.testService.History(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err, "Failed to list test history")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTestStats summarizes past test sessions
// @Summary Get test statistics
// @Description Returns totals, status breakdown, and average score across sessions
// @Tags tests
// @Produce json
// @Success 200 {object} services.TestStatsResponse
// @Router /api/v1/tests/stats [get]
func (h *TestHandler) GetTestStats(c *gin.Context) {
	resp, err := h.testService.Stats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, "Failed to load test statistics")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportTestHistory downloads test history as an Excel workbook
// @Summary Export test history
// @Description Streams an xlsx workbook with one row per session
// @Tags tests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Filter by status"
// @Param topic query string false "Filter by topic substring"
// @Success 200 {file} binary
// @Router /api/v1/tests/export [get]
func (h *TestHandler) ExportTestHistory(c *gin.Context) {
	filters, ok := h.parseHistoryFilters(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportHistoryToExcel(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err, "Failed to export test history")
		return
	}

	filename := "test_history_" + time.Now().Format("20060102_150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ===== HELPERS =====

// FinalizeTestRequest carries the optional finalize reason.
type FinalizeTestRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *TestHandler) parseHistoryFilters(c *gin.Context) (repositories.SessionFilters, bool) {
	filters := repositories.SessionFilters{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.SessionStatus(raw)
		switch status {
		case models.SessionActive, models.SessionSubmitted, models.SessionExpired:
			filters.Status = &status
		default:
			h.RespondWithError(c, http.StatusBadRequest, "Invalid status filter", nil,
				"status must be active, submitted, or expired")
			return filters, false
		}
	}

	if topic := strings.TrimSpace(c.Query("topic")); topic != "" {
		filters.Topic = &topic
	}

	if raw := strings.TrimSpace(c.Query("difficulty")); raw != "" {
		difficulty := models.DifficultyLevel(raw)
		filters.Difficulty = &difficulty
	}

	return filters, true
}

// handleServiceError maps service errors to appropriate HTTP responses
func (h *TestHandler) handleServiceError(c *gin.Context, err error, defaultMessage string) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var businessErr *services.BusinessRuleError
	if errors.As(err, &businessErr) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, businessErr.Message, err, map[string]interface{}{
			"rule":    businessErr.Rule,
			"context": businessErr.Context,
		})
		return
	}

	switch {
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err.Error())
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Test not found", err)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, err.Error(), err)
	case services.IsGone(err):
		h.RespondWithError(c, http.StatusGone, "Test session has expired", err)
	case services.IsUpstream(err):
		h.RespondWithError(c, http.StatusBadGateway, "Question generation is unavailable", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, defaultMessage, err)
	}
}
