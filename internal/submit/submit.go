// Package submit posts quiz answers and interprets the grader's verdict.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

// MaxPayloadSize caps the serialized answer payload at 1 MB.
const MaxPayloadSize = 1 * 1024 * 1024

// ErrPayloadTooLarge is returned when the answer payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("submit: payload exceeds size limit")

// Payload is the answer body expected by the grader.
type Payload struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Answer any    `json:"answer"`
}

// Result is the grader's verdict. URL, when set, points at the next
// question in the chain; an empty URL ends the quiz.
type Result struct {
	Correct bool   `json:"correct"`
	URL     string `json:"url,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Submitter posts answers to quiz submit endpoints.
type Submitter struct {
	maxRetries int
	httpClient *http.Client
}

// New creates a submitter with sane timeouts.
func New() *Submitter {
	return &Submitter{
		maxRetries: 2,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit posts payload to submitURL and parses the verdict. A failed
// request is retried once; 4xx responses are not retried.
func (s *Submitter) Submit(ctx context.Context, submitURL string, payload Payload) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if len(body) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(body))
	}

	log.Info("Submitting answer to %s (%d bytes)", submitURL, len(body))

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		result, retriable, err := s.post(ctx, submitURL, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retriable {
			break
		}
		log.Warn("Submission attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("submit to %s: %w", submitURL, lastErr)
}

func (s *Submitter) post(ctx context.Context, url string, body []byte) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadSize))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, false, fmt.Errorf("parse response: %w", err)
	}
	return &result, false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
