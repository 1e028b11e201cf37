package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcq-genie/mcq-service/internal/events"
	"github.com/mcq-genie/mcq-service/internal/llm"
	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/repositories"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

// ChatService handles the topic-exploration chat that accompanies test
// generation.
type ChatService interface {
	NewSession(ctx context.Context) (*ChatSessionResponse, error)
	SendMessage(ctx context.Context, req *ChatMessageRequest) (*ChatMessageResponse, error)
	History(ctx context.Context, sessionID string) (*ChatHistoryResponse, error)
}

// ===== REQUEST / RESPONSE TYPES =====

type ChatMessageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" validate:"required,min=1,max=2000"`
}

type ChatMessageResponse struct {
	SessionID   string    `json:"session_id"`
	Reply       string    `json:"reply"`
	Suggestions []string  `json:"suggestions"`
	Timestamp   time.Time `json:"timestamp"`
}

type ChatSessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []models.ChatMessage `json:"messages"`
}

// ===== SERVICE =====

const chatSystemPrompt = `You are a friendly study assistant for a quiz platform.
Help users pick and refine topics for multiple-choice tests, explain concepts
briefly, and suggest related subjects worth practicing. Keep answers concise.`

const chatSuggestionPrompt = `Given the conversation, propose up to 3 short
follow-up prompts the user might ask next. Respond with a JSON array of
strings only, no prose.`

// chatHistoryWindow bounds how many past messages are replayed to the model.
const chatHistoryWindow = 20

const chatMaxTokens = 800

const chatSuggestionMaxTokens = 200

// defaultSuggestions is returned when suggestion generation is skipped or
// fails; the chat reply itself is never blocked on suggestions.
var defaultSuggestions = []string{
	"Generate a practice test on this topic",
	"Explain this concept in more depth",
	"Suggest related topics to study",
}

type chatService struct {
	repo      repositories.Repository
	provider  llm.Provider
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewChatService(
	repo repositories.Repository,
	provider llm.Provider,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) ChatService {
	return &chatService{
		repo:      repo,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *chatService) NewSession(ctx context.Context) (*ChatSessionResponse, error) {
	session := &models.ChatSession{
		ID: "chat_" + uuid.NewString(),
	}
	if err := session.SetMessageHistory([]models.ChatMessage{}); err != nil {
		return nil, err
	}

	if err := s.repo.Chat().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	s.logger.Info("Chat session created", "session_id", session.ID)

	return &ChatSessionResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	}, nil
}

func (s *chatService) SendMessage(ctx context.Context, req *ChatMessageRequest) (*ChatMessageResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	session, history, err := s.loadOrCreateSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	history = append(history, models.ChatMessage{
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: now,
	})

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:    chatSystemPrompt,
		Messages:  buildChatMessages(history),
		MaxTokens: chatMaxTokens,
	})
	if err != nil {
		s.logger.Error("Chat completion failed", "session_id", session.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	reply := string(resp.Content)
	repliedAt := time.Now()
	history = append(history, models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: repliedAt,
	})

	if err := session.SetMessageHistory(history); err != nil {
		return nil, err
	}
	if err := s.repo.Chat().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save chat session: %w", err)
	}

	if s.publisher != nil {
		event := events.NewChatMessageEvent(session.ID, models.RoleAssistant, repliedAt)
		if err := s.publisher.PublishTestEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish chat event", "session_id", session.ID, "error", err)
		}
	}

	suggestions := defaultSuggestions
	if looksLikeLearningQuery(req.Message) {
		suggestions = s.suggestFollowUps(ctx, req.Message, reply)
	}

	return &ChatMessageResponse{
		SessionID:   session.ID,
		Reply:       reply,
		Suggestions: suggestions,
		Timestamp:   repliedAt,
	}, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) (*ChatHistoryResponse, error) {
	session, err := s.repo.Chat().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrChatSessionNotFound
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	messages, err := session.MessageHistory()
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	return &ChatHistoryResponse{
		SessionID: session.ID,
		Messages:  messages,
	}, nil
}

// ===== HELPERS =====

func (s *chatService) loadOrCreateSession(ctx context.Context, sessionID string) (*models.ChatSession, []models.ChatMessage, error) {
	if sessionID == "" {
		session := &models.ChatSession{ID: "chat_" + uuid.NewString()}
		if err := session.SetMessageHistory([]models.ChatMessage{}); err != nil {
			return nil, nil, err
		}
		if err := s.repo.Chat().Create(ctx, session); err != nil {
			return nil, nil, fmt.Errorf("failed to create chat session: %w", err)
		}
		s.logger.Info("Chat session created", "session_id", session.ID)
		return session, []models.ChatMessage{}, nil
	}

	session, err := s.repo.Chat().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrChatSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	history, err := session.MessageHistory()
	if err != nil {
		return nil, nil, err
	}
	return session, history, nil
}

// suggestFollowUps asks the model for follow-up prompts. Failures fall back
// to the defaults.
func (s *chatService) suggestFollowUps(ctx context.Context, message, reply string) []string {
	resp, err := s.provider.Generate(ctx, llm.Request{
		System: chatSuggestionPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: message},
			{Role: llm.RoleAssistant, Content: reply},
		},
		MaxTokens: chatSuggestionMaxTokens,
	})
	if err != nil {
		return defaultSuggestions
	}

	var suggestions []string
	if err := json.Unmarshal(resp.Content, &suggestions); err != nil || len(suggestions) == 0 {
		return defaultSuggestions
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func looksLikeLearningQuery(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range []string{"what", "how", "why", "explain", "learn", "study", "teach", "topic"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// buildChatMessages converts the trailing history window into provider
// messages.
func buildChatMessages(history []models.ChatMessage) []llm.Message {
	start := 0
	if len(history) > chatHistoryWindow {
		start = len(history) - chatHistoryWindow
	}

	messages := make([]llm.Message, 0, len(history)-start)
	for _, msg := range history[start:] {
		role := llm.RoleUser
		if msg.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	return messages
}
