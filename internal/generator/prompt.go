package generator

import (
	"fmt"

	"github.com/mcq-genie/mcq-service/internal/models"
)

var difficultyGuidance = map[models.DifficultyLevel]string{
	models.DifficultyEasy:   "Create straightforward questions testing basic knowledge and recall.",
	models.DifficultyMedium: "Create questions requiring understanding and application of concepts.",
	models.DifficultyHard:   "Create challenging questions requiring analysis, synthesis, and critical thinking.",
}

// buildSystemPrompt sets the question-writing rules for the given difficulty.
func buildSystemPrompt(difficulty models.DifficultyLevel) string {
	return fmt.Sprintf(`You are an expert educational content creator specializing in multiple-choice questions.

Your task is to generate high-quality MCQs that are clear, unambiguous, and educationally valuable.

Difficulty level: %s
%s

Requirements:
1. Each question must have exactly 4 options (A, B, C, D)
2. Only ONE option may be correct
3. Distractors (wrong options) should be plausible but clearly incorrect
4. Avoid "All of the above" or "None of the above" options
5. Questions must be clear and unambiguous
6. Provide a brief explanation for the correct answer

Respond with ONLY a valid JSON array, no additional text before or after. Example:
[
  {
    "question": "What is the capital of France?",
    "options": {
      "A": "London",
      "B": "Paris",
      "C": "Berlin",
      "D": "Madrid"
    },
    "correct_answer": "B",
    "explanation": "Paris is the capital and largest city of France."
  }
]`, difficulty, difficultyGuidance[difficulty])
}

// buildUserPrompt asks for the actual batch.
func buildUserPrompt(topic string, count int) string {
	return fmt.Sprintf(`Generate %d multiple-choice questions about: %s

Remember to respond with ONLY the JSON array, no other text.`, count, topic)
}
