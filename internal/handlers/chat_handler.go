package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mcq-genie/mcq-service/internal/services"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

type ChatHandler struct {
	BaseHandler
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService, logger utils.Logger) *ChatHandler {
	return &ChatHandler{
		BaseHandler: NewBaseHandler(logger),
		chatService: chatService,
	}
}

// CreateChatSession opens a new chat session
// @Summary Create chat session
// @Description Opens an empty chat session for topic exploration
// @Tags chat
// @Produce json
// @Success 201 {object} services.ChatSessionResponse
// @Router /api/v1/chat/sessions [post]
func (h *ChatHandler) CreateChatSession(c *gin.Context) {
	resp, err := h.chatService.NewSession(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, "Failed to create chat session")
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SendChatMessage sends a message and returns the assistant reply
// @Summary Send chat message
// @Description Sends a user message; omitting session_id opens a new session
// @Tags chat
// @Accept json
// @Produce json
// @Param request body services.ChatMessageRequest true "Message"
// @Success 200 {object} services.ChatMessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/chat/messages [post]
func (h *ChatHandler) SendChatMessage(c *gin.Context) {
	var req services.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	resp, err := h.chatService.SendMessage(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to send chat message")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetChatHistory retrieves the message history of a chat session
// @Summary Get chat history
// @Description Returns all messages exchanged in a chat session
// @Tags chat
// @Produce json
// @Param id path string true "Chat session ID"
// @Success 200 {object} services.ChatHistoryResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/chat/sessions/{id}/messages [get]
func (h *ChatHandler) GetChatHistory(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	resp, err := h.chatService.History(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get chat history")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleServiceError maps service errors to appropriate HTTP responses
func (h *ChatHandler) handleServiceError(c *gin.Context, err error, defaultMessage string) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	switch {
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, err.Error())
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "Chat session not found", err)
	case services.IsUpstream(err):
		h.RespondWithError(c, http.StatusBadGateway, "Chat backend is unavailable", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, defaultMessage, err)
	}
}
