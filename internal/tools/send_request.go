package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseChars = 5000

// SendRequestTool issues arbitrary HTTP requests on behalf of the agent.
type SendRequestTool struct {
	httpClient *http.Client
}

type sendRequestArgs struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// NewSendRequestTool creates a new HTTP request tool
func NewSendRequestTool() *SendRequestTool {
	return &SendRequestTool{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *SendRequestTool) Name() string {
	return "send_request"
}

func (t *SendRequestTool) Description() string {
	return `Send an HTTP request and return the response body.
Use this for API endpoints referenced by the question, for fetching JSON data,
or for POSTing data when the question requires it. Response bodies are
truncated to 5000 characters.`
}

func (t *SendRequestTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "The URL to request"
			},
			"method": {
				"type": "string",
				"enum": ["GET", "POST", "PUT", "DELETE"],
				"description": "HTTP method, defaults to GET"
			},
			"headers": {
				"type": "object",
				"description": "Optional request headers"
			},
			"body": {
				"type": "string",
				"description": "Optional request body (for POST/PUT)"
			}
		},
		"required": ["url"]
	}`)
}

func (t *SendRequestTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var reqArgs sendRequestArgs
	if err := json.Unmarshal(args, &reqArgs); err != nil {
		return errorResult("Failed to parse arguments: %v", err), nil
	}
	if reqArgs.URL == "" {
		return errorResult("url is required"), nil
	}

	method := strings.ToUpper(reqArgs.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if reqArgs.Body != "" {
		body = strings.NewReader(reqArgs.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqArgs.URL, body)
	if err != nil {
		return errorResult("Failed to create request: %v", err), nil
	}
	for k, v := range reqArgs.Headers {
		req.Header.Set(k, v)
	}
	if reqArgs.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return errorResult("Request failed: %v", err), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseChars+1))
	if err != nil {
		return errorResult("Failed to read response: %v", err), nil
	}

	content := string(respBody)
	if len(content) > maxResponseChars {
		content = content[:maxResponseChars] + "\n... (truncated)"
	}
	return ToolResult{
		Content: fmt.Sprintf("Status: %d\n%s", resp.StatusCode, content),
		IsError: resp.StatusCode >= 400,
	}, nil
}
