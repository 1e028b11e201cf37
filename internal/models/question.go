package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// OptionsPerQuestion is the uniform option count for every generated question.
const OptionsPerQuestion = 4

// OptionIDs are the valid option identifiers, in display order.
var OptionIDs = []string{"A", "B", "C", "D"}

// Option is a single answer choice within a question.
type Option struct {
	ID   string `json:"option_id" validate:"required,option_id"`
	Text string `json:"text" validate:"required"`
}

// Question is a single multiple-choice question. Questions are immutable once
// generated; they are stored embedded in the owning test session row.
type Question struct {
	ID            string          `json:"question_id"`
	Text          string          `json:"question_text"`
	Options       []Option        `json:"options"`
	CorrectOption string          `json:"correct_answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Difficulty    DifficultyLevel `json:"difficulty"`
}

// Public returns a copy safe to show to a test taker: the correct option and
// explanation are stripped.
func (q Question) Public() Question {
	q.CorrectOption = ""
	q.Explanation = ""
	return q
}

// IsValidOptionID reports whether id is one of the allowed option identifiers.
func IsValidOptionID(id string) bool {
	for _, valid := range OptionIDs {
		if id == valid {
			return true
		}
	}
	return false
}

// QuestionSet is an ordered sequence of questions belonging to one session.
type QuestionSet []Question

// Find returns the question with the given id, or false when the id does not
// belong to this set.
func (qs QuestionSet) Find(id string) (Question, bool) {
	for _, q := range qs {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Public returns the set with correct answers and explanations stripped.
func (qs QuestionSet) Public() QuestionSet {
	public := make(QuestionSet, len(qs))
	for i, q := range qs {
		public[i] = q.Public()
	}
	return public
}

// ToJSON marshals the set into a JSONB column value.
func (qs QuestionSet) ToJSON() (datatypes.JSON, error) {
	data, err := json.Marshal(qs)
	if err != nil {
		return nil, fmt.Errorf("marshal question set: %w", err)
	}
	return data, nil
}

// QuestionSetFromJSON unmarshals a JSONB column value back into a set.
func QuestionSetFromJSON(data datatypes.JSON) (QuestionSet, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var qs QuestionSet
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("unmarshal question set: %w", err)
	}
	return qs, nil
}
