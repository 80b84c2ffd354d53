package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

const (
	codeTimeout    = 30 * time.Second
	maxOutputChars = 5000
)

var codeFencePattern = regexp.MustCompile("(?s)^```(?:python)?\\s*\\n(.*?)\\n?```\\s*$")

// RunCodeTool executes Python snippets inside the job workspace.
type RunCodeTool struct {
	workDir string
	python  string
}

type runCodeArgs struct {
	Code string `json:"code"`
}

// NewRunCodeTool creates a code execution tool rooted at workDir.
func NewRunCodeTool(workDir string) *RunCodeTool {
	return &RunCodeTool{workDir: workDir, python: "python3"}
}

func (t *RunCodeTool) Name() string {
	return "run_code"
}

func (t *RunCodeTool) Description() string {
	return `Execute a Python script and return its stdout and stderr.
Use this for data analysis, parsing downloaded files, and computing answers.
The script runs in the job working directory where downloaded files live.
Execution is limited to 30 seconds; output is truncated to 5000 characters.
Print the final result, do not rely on the value of the last expression.`
}

func (t *RunCodeTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"code": {
				"type": "string",
				"description": "The Python code to execute"
			}
		},
		"required": ["code"]
	}`)
}

func (t *RunCodeTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var codeArgs runCodeArgs
	if err := json.Unmarshal(args, &codeArgs); err != nil {
		return errorResult("Failed to parse arguments: %v", err), nil
	}

	code := stripCodeFence(codeArgs.Code)
	if strings.TrimSpace(code) == "" {
		return errorResult("code is required"), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, codeTimeout)
	defer cancel()

	script := filepath.Join(t.workDir, fmt.Sprintf("snippet_%d.py", time.Now().UnixNano()))
	if err := os.WriteFile(script, []byte(code), 0o644); err != nil {
		return errorResult("Failed to write script: %v", err), nil
	}
	defer os.Remove(script)

	cmd := exec.CommandContext(runCtx, t.python, script)
	cmd.Dir = t.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running python snippet (%d chars)", len(code))
	err := cmd.Run()

	output := truncateOutput(stdout.String())
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return errorResult("Execution timed out after %s.\nPartial output:\n%s", codeTimeout, output), nil
		}
		return ToolResult{
			Content: fmt.Sprintf("Execution failed: %v\nstdout:\n%s\nstderr:\n%s", err, output, truncateOutput(stderr.String())),
			IsError: true,
		}, nil
	}

	if output == "" {
		output = "(no output)"
	}
	return ToolResult{Content: output}, nil
}

// stripCodeFence removes a surrounding markdown code fence the model
// sometimes wraps code in despite instructions.
func stripCodeFence(code string) string {
	trimmed := strings.TrimSpace(code)
	if match := codeFencePattern.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return code
}

func truncateOutput(s string) string {
	if len(s) > maxOutputChars {
		return s[:maxOutputChars] + "\n... (truncated)"
	}
	return s
}
