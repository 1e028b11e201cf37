package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcq-genie/mcq-service/internal/models"
)

// EventType represents different types of test lifecycle events
type EventType string

const (
	// Generation events
	EventTestGenerated EventType = "test.generated"

	// Session events
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionExpired   EventType = "session.expired"

	// Chat events
	EventChatMessage EventType = "chat.message"
)

// TestEvent is the base event structure for all test lifecycle events
type TestEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

const eventSource = "mcq-service"

// Event payloads

type TestGeneratedEvent struct {
	TestID        string                 `json:"test_id"`
	Topic         string                 `json:"topic"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
	QuestionCount int                    `json:"question_count"`
	TimeLimit     int                    `json:"time_limit"` // seconds
	GeneratedAt   time.Time              `json:"generated_at"`
}

type SessionSubmittedEvent struct {
	TestID       string    `json:"test_id"`
	Topic        string    `json:"topic"`
	SubmittedAt  time.Time `json:"submitted_at"`
	ScorePercent float64   `json:"score_percent"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
}

type SessionExpiredEvent struct {
	TestID    string    `json:"test_id"`
	Topic     string    `json:"topic"`
	ExpiredAt time.Time `json:"expired_at"`
}

type ChatMessageEvent struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	SentAt    time.Time `json:"sent_at"`
}

// Event factory functions

func NewTestGeneratedEvent(session *models.TestSession, questionCount int) *TestEvent {
	return &TestEvent{
		ID:        GenerateEventID(),
		Type:      EventTestGenerated,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data: TestGeneratedEvent{
			TestID:        session.ID,
			Topic:         session.Topic,
			Difficulty:    session.Difficulty,
			QuestionCount: questionCount,
			TimeLimit:     session.TimeLimit,
			GeneratedAt:   session.StartedAt,
		},
	}
}

func NewSessionSubmittedEvent(session *models.TestSession, result *models.TestResult) *TestEvent {
	return &TestEvent{
		ID:        GenerateEventID(),
		Type:      EventSessionSubmitted,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data: SessionSubmittedEvent{
			TestID:       session.ID,
			Topic:        session.Topic,
			SubmittedAt:  result.CompletedAt,
			ScorePercent: result.ScorePercent,
			CorrectCount: result.CorrectCount,
			TotalCount:   result.TotalQuestions,
		},
	}
}

func NewSessionExpiredEvent(session *models.TestSession, expiredAt time.Time) *TestEvent {
	return &TestEvent{
		ID:        GenerateEventID(),
		Type:      EventSessionExpired,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data: SessionExpiredEvent{
			TestID:    session.ID,
			Topic:     session.Topic,
			ExpiredAt: expiredAt,
		},
	}
}

func NewChatMessageEvent(sessionID string, role models.MessageRole, sentAt time.Time) *TestEvent {
	return &TestEvent{
		ID:        GenerateEventID(),
		Type:      EventChatMessage,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data: ChatMessageEvent{
			SessionID: sessionID,
			Role:      string(role),
			SentAt:    sentAt,
		},
	}
}

// GenerateEventID returns a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
