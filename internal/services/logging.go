package services

import (
	"context"
	"log/slog"
	"time"
)

// ServiceLogger provides structured operation logging for the service layer.
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, component string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", "mcq-service", "component", component),
	}
}

// LogOperation records the outcome of a service call at a level derived from
// the error class.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, testID string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		switch {
		case IsValidation(err) || IsBusinessRule(err):
			level = slog.LevelWarn
			status = "validation_error"
		case IsConflict(err) || IsGone(err):
			level = slog.LevelWarn
			status = "conflict"
		case IsNotFound(err):
			level = slog.LevelInfo
			status = "not_found"
		}
	}

	attrs := []any{
		"operation", operation,
		"test_id", testID,
		"status", status,
		"duration", duration,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}

	l.logger.Log(ctx, level, "Service operation", attrs...)
}
