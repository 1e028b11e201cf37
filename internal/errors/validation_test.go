package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("topic", "must be at least 3", "Go")

	if err.Field != "topic" {
		t.Errorf("Expected field to be 'topic', got '%s'", err.Field)
	}

	if err.Message != "must be at least 3" {
		t.Errorf("Expected message to be 'must be at least 3', got '%s'", err.Message)
	}

	if err.Value != "Go" {
		t.Errorf("Expected value to be 'Go', got '%v'", err.Value)
	}

	expected := "validation error on field 'topic': must be at least 3"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("topic", "is required", nil))
	expected := "validation failed: topic is required"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("num_questions", "must be at least 1", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("difficulty", "must be easy, medium, or hard", "difficulty_level", "extreme")

	if err.Rule != "difficulty_level" {
		t.Errorf("Expected rule to be 'difficulty_level', got '%s'", err.Rule)
	}

	if err.Field != "difficulty" {
		t.Errorf("Expected field to be 'difficulty', got '%s'", err.Field)
	}
}

// ToValidationErrors must translate the domain's custom tags into their
// user-facing messages.
func TestToValidationErrors_CustomTagMessages(t *testing.T) {
	v := validator.New()
	for _, tag := range []string{"difficulty_level", "session_status", "option_id"} {
		if err := v.RegisterValidation(tag, func(validator.FieldLevel) bool { return false }); err != nil {
			t.Fatalf("register %s: %v", tag, err)
		}
	}

	type answerInput struct {
		Difficulty string `validate:"difficulty_level"`
		Status     string `validate:"session_status"`
		Selected   string `validate:"option_id"`
	}

	err := v.Struct(answerInput{Difficulty: "extreme", Status: "paused", Selected: "E"})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	verrs := ToValidationErrors(err)
	if len(verrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(verrs))
	}

	expected := map[string]string{
		"difficulty_level": "must be easy, medium, or hard",
		"session_status":   "must be a valid session status (active, submitted, expired)",
		"option_id":        "must be one of: A, B, C, D",
	}
	for _, ve := range verrs {
		want, ok := expected[ve.Rule]
		if !ok {
			t.Errorf("unexpected rule '%s'", ve.Rule)
			continue
		}
		if ve.Message != want {
			t.Errorf("rule '%s': expected message '%s', got '%s'", ve.Rule, want, ve.Message)
		}
	}
}

func TestToValidationErrors_StandardTags(t *testing.T) {
	v := validator.New()

	type generateInput struct {
		Topic string `validate:"required"`
		Count int    `validate:"min=1"`
	}

	err := v.Struct(generateInput{Topic: "", Count: 0})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	verrs := ToValidationErrors(err)
	if len(verrs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d", len(verrs))
	}
	if verrs[0].Message != "is required" {
		t.Errorf("expected 'is required', got '%s'", verrs[0].Message)
	}
	if verrs[1].Message != "must be at least 1" {
		t.Errorf("expected 'must be at least 1', got '%s'", verrs[1].Message)
	}
}
