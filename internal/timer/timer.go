// Package timer enforces the per-question time budget.
//
// Quiz questions give roughly three minutes from page load to submission.
// The timer triggers a force-submit a few seconds before that limit so
// the submission itself still completes in time.
package timer

import (
	"context"
	"sync"
	"time"
)

// DefaultForceSubmit is the default force-submit threshold: 180s budget
// minus a 10s submission buffer.
const DefaultForceSubmit = 170 * time.Second

// QuestionTimer tracks elapsed time for a single quiz question.
type QuestionTimer struct {
	mu        sync.Mutex
	timeout   time.Duration
	startTime time.Time
	questions int
}

// New creates a timer with the given force-submit threshold.
// A non-positive timeout falls back to DefaultForceSubmit.
func New(timeout time.Duration) *QuestionTimer {
	if timeout <= 0 {
		timeout = DefaultForceSubmit
	}
	return &QuestionTimer{timeout: timeout}
}

// Start begins (or restarts) the budget for a new question.
func (t *QuestionTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
	t.questions++
}

// Elapsed returns the time since Start, or zero when not started.
func (t *QuestionTimer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startTime.IsZero() {
		return 0
	}
	return time.Since(t.startTime)
}

// Remaining returns the time left before the force-submit threshold.
// Never negative.
func (t *QuestionTimer) Remaining() time.Duration {
	t.mu.Lock()
	timeout := t.timeout
	start := t.startTime
	t.mu.Unlock()

	if start.IsZero() {
		return timeout
	}
	remaining := timeout - time.Since(start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldForceSubmit reports whether the budget has been exhausted.
func (t *QuestionTimer) ShouldForceSubmit() bool {
	return t.Remaining() == 0
}

// Context derives a context that expires at the force-submit threshold.
func (t *QuestionTimer) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, t.Remaining())
}

// Status is a snapshot of the timer for logging and the time tool.
type Status struct {
	Elapsed        float64 `json:"elapsed"`
	Remaining      float64 `json:"remaining"`
	Timeout        float64 `json:"timeout"`
	ForceSubmit    bool    `json:"should_force_submit"`
	QuestionNumber int     `json:"question_number"`
}

// GetStatus returns the current timer snapshot.
func (t *QuestionTimer) GetStatus() Status {
	t.mu.Lock()
	questions := t.questions
	timeout := t.timeout
	t.mu.Unlock()

	return Status{
		Elapsed:        roundSeconds(t.Elapsed()),
		Remaining:      roundSeconds(t.Remaining()),
		Timeout:        timeout.Seconds(),
		ForceSubmit:    t.ShouldForceSubmit(),
		QuestionNumber: questions,
	}
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(10*time.Millisecond)) / float64(time.Second)
}
