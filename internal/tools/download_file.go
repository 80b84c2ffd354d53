package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Darunesh1/tds-quiz-solver/internal/download"
)

// DownloadFileTool saves remote files into the job workspace so run_code
// can read them from disk.
type DownloadFileTool struct {
	downloader *download.Downloader
	jobID      string
}

type downloadFileArgs struct {
	URL string `json:"url"`
}

// NewDownloadFileTool creates a download tool bound to one job's workspace.
func NewDownloadFileTool(downloader *download.Downloader, jobID string) *DownloadFileTool {
	return &DownloadFileTool{downloader: downloader, jobID: jobID}
}

func (t *DownloadFileTool) Name() string {
	return "download_file"
}

func (t *DownloadFileTool) Description() string {
	return `Download a file referenced by the question into the working directory.
The returned local path can be opened directly from run_code. Files larger
than 50 MB are rejected.`
}

func (t *DownloadFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "URL of the file to download"
			}
		},
		"required": ["url"]
	}`)
}

func (t *DownloadFileTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var dlArgs downloadFileArgs
	if err := json.Unmarshal(args, &dlArgs); err != nil {
		return errorResult("Failed to parse arguments: %v", err), nil
	}
	if dlArgs.URL == "" {
		return errorResult("url is required"), nil
	}

	path, err := t.downloader.Download(ctx, t.jobID, dlArgs.URL)
	if err != nil {
		return errorResult("Download failed: %v", err), nil
	}
	return ToolResult{Content: fmt.Sprintf("Saved to %s", path)}, nil
}
