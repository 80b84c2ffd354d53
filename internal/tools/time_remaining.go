package tools

import (
	"context"
	"encoding/json"

	"github.com/Darunesh1/tds-quiz-solver/internal/timer"
)

// TimeRemainingTool exposes the question time budget to the agent.
type TimeRemainingTool struct {
	timer *timer.QuestionTimer
}

// NewTimeRemainingTool creates a time budget tool
func NewTimeRemainingTool(qt *timer.QuestionTimer) *TimeRemainingTool {
	return &TimeRemainingTool{timer: qt}
}

func (t *TimeRemainingTool) Name() string {
	return "get_time_remaining"
}

func (t *TimeRemainingTool) Description() string {
	return `Check how many seconds remain before the answer is force-submitted.
Call this before starting long operations; with little time left, prefer
submitting a best-effort answer over further exploration.`
}

func (t *TimeRemainingTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *TimeRemainingTool) Execute(_ context.Context, _ json.RawMessage) (ToolResult, error) {
	status := t.timer.GetStatus()
	payload, err := json.Marshal(status)
	if err != nil {
		return errorResult("Failed to read timer: %v", err), nil
	}
	return ToolResult{Content: string(payload)}, nil
}
