package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is a single message within a chat session.
type ChatMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChatSession holds a conversation's message history as an embedded document.
type ChatSession struct {
	ID       string         `json:"session_id" gorm:"primaryKey;size:64"`
	Messages datatypes.JSON `json:"-" gorm:"type:jsonb"` // []ChatMessage

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// MessageHistory decodes the embedded message document.
func (s *ChatSession) MessageHistory() ([]ChatMessage, error) {
	if len(s.Messages) == 0 {
		return nil, nil
	}
	var messages []ChatMessage
	if err := json.Unmarshal(s.Messages, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal chat messages: %w", err)
	}
	return messages, nil
}

// SetMessageHistory encodes the message list into the row.
func (s *ChatSession) SetMessageHistory(messages []ChatMessage) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal chat messages: %w", err)
	}
	s.Messages = data
	return nil
}
