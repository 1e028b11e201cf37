package generator

import "github.com/mcq-genie/mcq-service/internal/llm"

// mcqBatchSchema is the JSON Schema the LLM response must conform to: an
// array of question objects with a fixed A-D option map.
var mcqBatchSchema = &llm.Schema{
	Name: "mcq-batch",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"question", "options", "correct_answer"},
			"properties": map[string]any{
				"question": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
				"options": map[string]any{
					"type":     "object",
					"required": []string{"A", "B", "C", "D"},
					"properties": map[string]any{
						"A": map[string]any{"type": "string", "minLength": 1},
						"B": map[string]any{"type": "string", "minLength": 1},
						"C": map[string]any{"type": "string", "minLength": 1},
						"D": map[string]any{"type": "string", "minLength": 1},
					},
					"additionalProperties": false,
				},
				"correct_answer": map[string]any{
					"type": "string",
					"enum": []string{"A", "B", "C", "D"},
				},
				"explanation": map[string]any{
					"type": "string",
				},
			},
			"additionalProperties": false,
		},
	},
}
