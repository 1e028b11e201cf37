package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// UnansweredLabel is the selected-answer placeholder for questions the taker
// never answered.
const UnansweredLabel = "unanswered"

// QuestionResult is the scored outcome for a single question.
type QuestionResult struct {
	QuestionID     string `json:"question_id"`
	QuestionText   string `json:"question_text"`
	SelectedOption string `json:"selected_answer"`
	CorrectOption  string `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
	Explanation    string `json:"explanation,omitempty"`
}

// TestResult is the scored outcome of a finalized session. Created once,
// never updated afterwards.
type TestResult struct {
	SessionID      string  `json:"test_id" gorm:"primaryKey;size:64"`
	Topic          string  `json:"topic" gorm:"not null;size:200"`
	TotalQuestions int     `json:"total_questions" gorm:"not null"`
	CorrectCount   int     `json:"correct_answers" gorm:"not null"`
	WrongCount     int     `json:"wrong_answers" gorm:"not null"`
	ScorePercent   float64 `json:"score_percentage" gorm:"not null"`

	Breakdown datatypes.JSON `json:"-" gorm:"type:jsonb;not null"` // []QuestionResult

	CompletedAt time.Time `json:"completed_at" gorm:"not null"`
	CreatedAt   time.Time `json:"-"`
}

func (TestResult) TableName() string {
	return "test_results"
}

// QuestionResults decodes the per-question breakdown document.
func (r *TestResult) QuestionResults() ([]QuestionResult, error) {
	if len(r.Breakdown) == 0 {
		return nil, nil
	}
	var results []QuestionResult
	if err := json.Unmarshal(r.Breakdown, &results); err != nil {
		return nil, fmt.Errorf("unmarshal result breakdown: %w", err)
	}
	return results, nil
}

// SetQuestionResults encodes the per-question breakdown into the row.
func (r *TestResult) SetQuestionResults(results []QuestionResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal result breakdown: %w", err)
	}
	r.Breakdown = data
	return nil
}
