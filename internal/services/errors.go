package services

import (
	"errors"
	"fmt"

	apperrors "github.com/mcq-genie/mcq-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Session specific errors
	ErrSessionNotFound    = errors.New("test session not found")
	ErrSessionExpired     = errors.New("test session has expired")
	ErrSessionSubmitted   = errors.New("test session already submitted")
	ErrSessionNotActive   = errors.New("test session is not active")
	ErrSessionNotTerminal = errors.New("test session is still active")

	// Answer specific errors
	ErrUnknownQuestion = errors.New("question does not belong to this session")
	ErrInvalidOption   = errors.New("selected option is not a valid option id")

	// Generation specific errors
	ErrGenerationFailed = errors.New("question generation failed")

	// Result specific errors
	ErrResultNotFound = errors.New("test result not found")

	// Chat specific errors
	ErrChatSessionNotFound = errors.New("chat session not found")
	ErrChatFailed          = errors.New("chat completion failed")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrChatSessionNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrUnknownQuestion) ||
		errors.Is(err, ErrInvalidOption) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionSubmitted) ||
		errors.Is(err, ErrSessionNotTerminal)
}

// IsGone checks if error represents a session that timed out
func IsGone(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsUpstream checks if error came from the generation backend
func IsUpstream(err error) bool {
	return errors.Is(err, ErrGenerationFailed) || errors.Is(err, ErrChatFailed)
}
