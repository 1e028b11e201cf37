package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionSubmitted SessionStatus = "submitted"
	SessionExpired   SessionStatus = "expired"
)

// EndReason records why a session left the active status.
type EndReason string

const (
	EndReasonUser    EndReason = "user_submit"
	EndReasonTimeout EndReason = "timeout"
)

// TestSession is a single timed attempt at a generated question set.
//
// Questions and the submitted-answer mapping are stored as JSONB documents
// inside the row; the question set is immutable once written, the answer map
// only changes while the session is active.
type TestSession struct {
	ID         string          `json:"test_id" gorm:"primaryKey;size:64"`
	Topic      string          `json:"topic" gorm:"not null;size:200;index" validate:"required,min=3,max=200"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;size:16" validate:"required,difficulty_level"`
	Status     SessionStatus   `json:"status" gorm:"not null;default:active;index"`

	Questions datatypes.JSON `json:"-" gorm:"type:jsonb;not null"` // QuestionSet
	Answers   datatypes.JSON `json:"-" gorm:"type:jsonb"`          // map[questionID]optionID

	TimeLimit   int        `json:"time_limit" gorm:"not null"` // seconds
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"not null;index"`
	SubmittedAt *time.Time `json:"submitted_at"`
	EndReason   *EndReason `json:"end_reason" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Result *TestResult `json:"result,omitempty" gorm:"foreignKey:SessionID"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}

// QuestionSet decodes the embedded question document.
func (s *TestSession) QuestionSet() (QuestionSet, error) {
	return QuestionSetFromJSON(s.Questions)
}

// AnswerMap decodes the submitted-answer mapping. A session with no answers
// yet yields an empty, non-nil map.
func (s *TestSession) AnswerMap() (map[string]string, error) {
	answers := make(map[string]string)
	if len(s.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(s.Answers, &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answer map: %w", err)
	}
	return answers, nil
}

// SetAnswerMap encodes the submitted-answer mapping back into the row.
func (s *TestSession) SetAnswerMap(answers map[string]string) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answer map: %w", err)
	}
	s.Answers = data
	return nil
}

// IsTerminal reports whether the session has reached a terminal status.
func (s *TestSession) IsTerminal() bool {
	return s.Status == SessionSubmitted || s.Status == SessionExpired
}

// ExpiredAt reports whether the session's time limit has elapsed at the given
// instant. Terminal sessions are never considered expired-in-flight.
func (s *TestSession) ExpiredAt(now time.Time) bool {
	return s.Status == SessionActive && now.After(s.ExpiresAt)
}

// TimeRemaining returns the seconds left before expiry, floored at zero.
func (s *TestSession) TimeRemaining(now time.Time) int {
	if s.Status != SessionActive {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}
