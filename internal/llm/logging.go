package llm

import (
	"context"
	"log/slog"
	"time"
)

// LoggingProvider is a decorator that logs every request with timing and
// token usage.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider, logger *slog.Logger) Provider {
	return &LoggingProvider{inner: p, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	schemaName := ""
	if req.Schema != nil {
		schemaName = req.Schema.Name
	}

	resp, err := l.inner.Generate(ctx, req)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("LLM request failed",
			"model", l.inner.ModelID(),
			"schema", schemaName,
			"duration", duration.String(),
			"error", err)
		return nil, err
	}

	l.logger.Info("LLM request completed",
		"model", resp.Model,
		"schema", schemaName,
		"duration", duration.String(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
