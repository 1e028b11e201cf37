package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcq-genie/mcq-service/internal/llm"
	"github.com/mcq-genie/mcq-service/internal/models"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

const (
	generationTemperature = 0.8
	tokensPerQuestion     = 300
	minResponseTokens     = 1200
)

// Generator turns a topic and parameters into an ordered question set.
type Generator interface {
	Generate(ctx context.Context, topic string, count int, difficulty models.DifficultyLevel) (models.QuestionSet, error)
}

type llmGenerator struct {
	provider llm.Provider
	logger   utils.Logger
}

// New creates a Generator backed by the given LLM provider.
func New(provider llm.Provider, logger utils.Logger) Generator {
	return &llmGenerator{
		provider: provider,
		logger:   logger,
	}
}

// rawQuestion mirrors the JSON shape the LLM is instructed to produce.
type rawQuestion struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

func (g *llmGenerator) Generate(ctx context.Context, topic string, count int, difficulty models.DifficultyLevel) (models.QuestionSet, error) {
	maxTokens := count * tokensPerQuestion
	if maxTokens < minResponseTokens {
		maxTokens = minResponseTokens
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: buildSystemPrompt(difficulty),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserPrompt(topic, count)},
		},
		Schema:      mcqBatchSchema,
		MaxTokens:   maxTokens,
		Temperature: generationTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("llm generate: %w", err)
	}

	questions, err := parseQuestions(resp.Content, difficulty)
	if err != nil {
		return nil, err
	}

	if len(questions) != count {
		g.logger.Warn("Generated question count differs from requested",
			"topic", topic,
			"requested", count,
			"generated", len(questions))
	}

	g.logger.Info("Questions generated",
		"topic", topic,
		"count", len(questions),
		"difficulty", difficulty,
		"model", resp.Model)

	return questions, nil
}

// parseQuestions converts the raw LLM payload into the question model,
// enforcing the uniform option count and exactly-one-correct-option rules.
func parseQuestions(payload json.RawMessage, difficulty models.DifficultyLevel) (models.QuestionSet, error) {
	cleaned := stripCodeFences(string(payload))

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("parse question payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("question payload is empty")
	}

	questions := make(models.QuestionSet, 0, len(raw))
	for i, rq := range raw {
		q, err := buildQuestion(rq, i+1, difficulty)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func buildQuestion(rq rawQuestion, ordinal int, difficulty models.DifficultyLevel) (models.Question, error) {
	if strings.TrimSpace(rq.Question) == "" {
		return models.Question{}, fmt.Errorf("missing question text")
	}
	if len(rq.Options) != models.OptionsPerQuestion {
		return models.Question{}, fmt.Errorf("expected %d options, got %d", models.OptionsPerQuestion, len(rq.Options))
	}
	if !models.IsValidOptionID(rq.CorrectAnswer) {
		return models.Question{}, fmt.Errorf("correct answer %q is not a valid option id", rq.CorrectAnswer)
	}

	options := make([]models.Option, 0, models.OptionsPerQuestion)
	seen := make(map[string]bool, models.OptionsPerQuestion)
	for _, id := range models.OptionIDs {
		text, ok := rq.Options[id]
		if !ok || strings.TrimSpace(text) == "" {
			return models.Question{}, fmt.Errorf("missing option %s", id)
		}
		if seen[text] {
			return models.Question{}, fmt.Errorf("duplicate option text %q", text)
		}
		seen[text] = true
		options = append(options, models.Option{ID: id, Text: text})
	}

	return models.Question{
		ID:            fmt.Sprintf("q_%d", ordinal),
		Text:          rq.Question,
		Options:       options,
		CorrectOption: rq.CorrectAnswer,
		Explanation:   rq.Explanation,
		Difficulty:    difficulty,
	}, nil
}

// stripCodeFences removes markdown code fences some models wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
