package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

const pipTimeout = 120 * time.Second

// AddDependenciesTool installs Python packages for run_code to use.
type AddDependenciesTool struct {
	python string
}

type addDependenciesArgs struct {
	Packages []string `json:"packages"`
}

// NewAddDependenciesTool creates a package installation tool
func NewAddDependenciesTool() *AddDependenciesTool {
	return &AddDependenciesTool{python: "python3"}
}

func (t *AddDependenciesTool) Name() string {
	return "add_dependencies"
}

func (t *AddDependenciesTool) Description() string {
	return `Install Python packages with pip so that run_code can import them.
Common data packages (pandas, numpy, requests, beautifulsoup4, pillow) are
preinstalled; only call this when an import actually fails.`
}

func (t *AddDependenciesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"packages": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Package names to install, e.g. [\"openpyxl\", \"lxml\"]"
			}
		},
		"required": ["packages"]
	}`)
}

func (t *AddDependenciesTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var depArgs addDependenciesArgs
	if err := json.Unmarshal(args, &depArgs); err != nil {
		return errorResult("Failed to parse arguments: %v", err), nil
	}
	if len(depArgs.Packages) == 0 {
		return errorResult("packages is required"), nil
	}
	for _, pkg := range depArgs.Packages {
		if strings.ContainsAny(pkg, " ;&|<>$`") {
			return errorResult("invalid package name: %q", pkg), nil
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, pipTimeout)
	defer cancel()

	log.Info("Installing packages: %s", strings.Join(depArgs.Packages, ", "))

	cmdArgs := append([]string{"-m", "pip", "install", "--quiet"}, depArgs.Packages...)
	cmd := exec.CommandContext(runCtx, t.python, cmdArgs...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return errorResult("pip install failed: %v\n%s", err, truncateOutput(output.String())), nil
	}
	return ToolResult{Content: fmt.Sprintf("Installed: %s", strings.Join(depArgs.Packages, ", "))}, nil
}

// ListPackagesTool reports which Python packages are available.
type ListPackagesTool struct {
	python string
}

// NewListPackagesTool creates a package listing tool
func NewListPackagesTool() *ListPackagesTool {
	return &ListPackagesTool{python: "python3"}
}

func (t *ListPackagesTool) Name() string {
	return "list_installed_packages"
}

func (t *ListPackagesTool) Description() string {
	return "List the Python packages currently installed and importable from run_code."
}

func (t *ListPackagesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ListPackagesTool) Execute(ctx context.Context, _ json.RawMessage) (ToolResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.python, "-m", "pip", "list", "--format=freeze")

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return errorResult("pip list failed: %v\n%s", err, truncateOutput(output.String())), nil
	}
	return ToolResult{Content: truncateOutput(output.String())}, nil
}
