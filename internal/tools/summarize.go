package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Darunesh1/tds-quiz-solver/internal/llm"
)

const maxSummarizeInput = 12000

// Generator is the LLM surface the summarize tool needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts *llm.GenerateOptions) (string, error)
}

// SummarizeTool condenses long text with the LLM so it fits the
// agent's context window.
type SummarizeTool struct {
	generator Generator
}

type summarizeArgs struct {
	Text  string `json:"text"`
	Focus string `json:"focus,omitempty"`
}

// NewSummarizeTool creates a summarization tool
func NewSummarizeTool(generator Generator) *SummarizeTool {
	return &SummarizeTool{generator: generator}
}

func (t *SummarizeTool) Name() string {
	return "summarize_text"
}

func (t *SummarizeTool) Description() string {
	return `Summarize long text down to its essential facts. Use this when a tool
returned more text than you can reason over, keeping only what matters
for answering the question.`
}

func (t *SummarizeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {
				"type": "string",
				"description": "The text to summarize"
			},
			"focus": {
				"type": "string",
				"description": "Optional aspect to focus the summary on"
			}
		},
		"required": ["text"]
	}`)
}

func (t *SummarizeTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var sumArgs summarizeArgs
	if err := json.Unmarshal(args, &sumArgs); err != nil {
		return errorResult("Failed to parse arguments: %v", err), nil
	}
	if sumArgs.Text == "" {
		return errorResult("text is required"), nil
	}

	text := sumArgs.Text
	if len(text) > maxSummarizeInput {
		text = text[:maxSummarizeInput]
	}

	prompt := "Summarize the following text concisely, keeping concrete facts, numbers and URLs."
	if sumArgs.Focus != "" {
		prompt = fmt.Sprintf("Summarize the following text concisely, focusing on: %s. Keep concrete facts, numbers and URLs.", sumArgs.Focus)
	}
	prompt += "\n\n" + text

	summary, err := t.generator.Generate(ctx, prompt, llm.NewGenerateOptions().WithTemperature(0))
	if err != nil {
		return errorResult("Summarization failed: %v", err), nil
	}
	return ToolResult{Content: summary}, nil
}
