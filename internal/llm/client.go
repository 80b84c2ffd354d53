package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

// minAttemptHeadroom is the minimum time that must remain on the request
// context before another provider attempt is started. A near-expired
// question budget is better spent submitting than waiting on a doomed call.
const minAttemptHeadroom = 5 * time.Second

var retryBackoffs = []time.Duration{0, 500 * time.Millisecond, time.Second, 2 * time.Second}

// ErrDeadlineTooClose is returned when the question deadline leaves no room
// for another LLM attempt.
var ErrDeadlineTooClose = errors.New("llm: not enough time remaining for another attempt")

// ProviderStatus tracks the last observed health of one provider.
type ProviderStatus struct {
	Available bool   `json:"available"`
	LastError string `json:"last_error,omitempty"`
}

// Client is an LLM client with per-call retry and provider fallback.
// Thread-safe for concurrent use.
type Client struct {
	httpClient *http.Client

	mu     sync.RWMutex
	config Config
	gemini ProviderStatus
	aipipe ProviderStatus
}

// NewClient creates a new LLM client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}, nil
}

// GeminiAvailable reports the last observed Gemini health.
func (c *Client) GeminiAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gemini.Available
}

// AIPipeAvailable reports the last observed AIpipe health.
func (c *Client) AIPipeAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.aipipe.Available
}

// Provider returns the configured primary provider name.
func (c *Client) Provider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Provider
}

// ApplySettings updates the runtime-adjustable parts of the client config.
func (c *Client) ApplySettings(provider string, fallbackEnabled bool, geminiModel, aipipeModel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if provider != "" {
		c.config.Provider = strings.ToUpper(provider)
	}
	c.config.FallbackEnabled = fallbackEnabled
	if geminiModel != "" {
		c.config.GeminiModel = geminiModel
	}
	if aipipeModel != "" {
		c.config.AIPipeModel = aipipeModel
	}
}

// Generate produces a completion with retry and provider fallback.
//
// ctx should carry the question deadline; attempts are not started when
// less than minAttemptHeadroom remains.
func (c *Client) Generate(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	if opts == nil {
		opts = NewGenerateOptions()
	}

	c.mu.RLock()
	cfg := c.config
	c.mu.RUnlock()

	messages := buildMessages(prompt, opts.System)

	var lastErr error
	for _, provider := range cfg.providerOrder() {
		var (
			text string
			err  error
		)
		switch provider {
		case ProviderGemini:
			text, err = c.callWithRetries(ctx, func(ctx context.Context) (string, error) {
				return c.callGemini(ctx, cfg, messages, opts)
			})
			c.setStatus(ProviderGemini, err)
		case ProviderAIPipe:
			text, err = c.callWithRetries(ctx, func(ctx context.Context) (string, error) {
				return c.callAIPipe(ctx, cfg, messages, opts)
			})
			c.setStatus(ProviderAIPipe, err)
		}

		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Warn("LLM provider %s failed: %v", provider, err)

		// Deadline exhaustion will not improve on the fallback provider.
		if errors.Is(err, ErrDeadlineTooClose) || ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("llm generation failed after retries and fallback: %w", lastErr)
}

func buildMessages(prompt, system string) []Message {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})
	return messages
}

func (c *Client) setStatus(provider string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := ProviderStatus{Available: err == nil}
	if err != nil {
		status.LastError = err.Error()
	}
	switch provider {
	case ProviderGemini:
		c.gemini = status
	case ProviderAIPipe:
		c.aipipe = status
	}
}

// callWithRetries retries transient failures with a fixed backoff ladder
// while respecting the context deadline.
func (c *Client) callWithRetries(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt < len(retryBackoffs); attempt++ {
		if deadline, ok := ctx.Deadline(); ok {
			if time.Until(deadline) < minAttemptHeadroom {
				return "", fmt.Errorf("%w: %.1fs remaining", ErrDeadlineTooClose, time.Until(deadline).Seconds())
			}
		}

		if retryBackoffs[attempt] > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryBackoffs[attempt]):
			}
		}

		text, err := call(ctx)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !isRetriable(err) || attempt == len(retryBackoffs)-1 {
			break
		}
		log.Warn("LLM call error (attempt %d/%d): %v", attempt+1, len(retryBackoffs), err)
	}

	return "", fmt.Errorf("llm call failed: %w", lastErr)
}

// isRetriable treats HTTP 429/5xx and network timeouts as transient.
func isRetriable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retriable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	// url.Error wraps transport failures (connection refused, reset).
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// callGemini calls the generativelanguage REST API directly.
func (c *Client) callGemini(ctx context.Context, cfg Config, messages []Message, opts *GenerateOptions) (string, error) {
	if cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("gemini API key not configured")
	}

	model := opts.Model
	if model == "" {
		model = cfg.GeminiModel
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(cfg.GeminiAPIURL, "/"), model)

	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		// Gemini has no system role on this endpoint; fold everything
		// into ordered user turns.
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	reqBody := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: c.maxTokens(cfg, opts),
			Temperature:     c.temperature(cfg, opts),
		},
	}

	body, err := c.post(ctx, url, map[string]string{
		"Content-Type":   "application/json",
		"x-goog-api-key": cfg.GeminiAPIKey,
	}, reqBody)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini API error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return strings.TrimSpace(text.String()), nil
}

// callAIPipe calls the OpenAI-compatible chat completions proxy.
func (c *Client) callAIPipe(ctx context.Context, cfg Config, messages []Message, opts *GenerateOptions) (string, error) {
	if cfg.AIPipeAPIKey == "" {
		return "", fmt.Errorf("aipipe API key not configured")
	}

	model := opts.Model
	if model == "" {
		model = cfg.AIPipeModel
	}

	reqBody := ChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxTokens(cfg, opts),
		Temperature: c.temperature(cfg, opts),
	}

	url := strings.TrimSuffix(cfg.AIPipeAPIURL, "/") + "/chat/completions"
	body, err := c.post(ctx, url, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + cfg.AIPipeAPIKey,
	}, reqBody)
	if err != nil {
		return "", err
	}

	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse aipipe response: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", resp.Error
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in aipipe response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) post(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) maxTokens(cfg Config, opts *GenerateOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return cfg.MaxTokens
}

func (c *Client) temperature(cfg Config, opts *GenerateOptions) float64 {
	if opts.Temperature >= 0 && opts.Temperature <= 2 {
		return opts.Temperature
	}
	return cfg.Temperature
}
