package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stepDecision is the agent's parsed reply for one reasoning step.
type stepDecision struct {
	Action    string          `json:"action"`
	Tool      string          `json:"tool"`
	Args      json.RawMessage `json:"args"`
	Answer    any             `json:"answer"`
	Reasoning string          `json:"reasoning"`
}

type planDecision struct {
	Plan         string `json:"plan"`
	AnswerFormat string `json:"answer_format"`
}

type finalDecision struct {
	Answer    any    `json:"answer"`
	Reasoning string `json:"reasoning"`
}

// extractJSON pulls the first JSON object out of a model reply. Models
// occasionally wrap the object in prose or a code fence despite the
// strict-JSON instruction.
func extractJSON(reply string) (string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in reply")
	}
	return reply[start : end+1], nil
}

func parseStep(reply string) (*stepDecision, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	var decision stepDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("parse step decision: %w", err)
	}
	if decision.Action != "tool" && decision.Action != "answer" {
		return nil, fmt.Errorf("unknown action %q", decision.Action)
	}
	if decision.Action == "tool" && decision.Tool == "" {
		return nil, fmt.Errorf("tool action without tool name")
	}
	return &decision, nil
}

func parsePlan(reply string) (*planDecision, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	var decision planDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &decision, nil
}

func parseFinal(reply string) (*finalDecision, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	var decision finalDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return nil, fmt.Errorf("parse final answer: %w", err)
	}
	return &decision, nil
}
