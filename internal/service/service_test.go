package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darunesh1/tds-quiz-solver/internal/browser"
	"github.com/Darunesh1/tds-quiz-solver/internal/config"
	"github.com/Darunesh1/tds-quiz-solver/internal/download"
	"github.com/Darunesh1/tds-quiz-solver/internal/jobs"
	"github.com/Darunesh1/tds-quiz-solver/internal/llm"
	"github.com/Darunesh1/tds-quiz-solver/internal/submit"
)

type fakeGenerator struct {
	replies []string
	calls   int
	applied []string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ *llm.GenerateOptions) (string, error) {
	if f.calls >= len(f.replies) {
		return f.replies[len(f.replies)-1], nil
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

func (f *fakeGenerator) ApplySettings(provider string, _ bool, _, _ string) {
	f.applied = append(f.applied, provider)
}

type fakeLoader struct{}

func (fakeLoader) LoadPage(_ context.Context, url string) (*browser.Page, error) {
	return &browser.Page{
		URL:  url,
		HTML: `<html><body><div class="instructions">Answer with the number forty-two.</div></body></html>`,
		Text: "Answer with the number forty-two.",
	}, nil
}

type fakePoster struct {
	payloads []submit.Payload
}

func (f *fakePoster) Submit(_ context.Context, _ string, payload submit.Payload) (*submit.Result, error) {
	f.payloads = append(f.payloads, payload)
	return &submit.Result{Correct: true}, nil
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{
			ForceSubmitTime:   170,
			JobRetentionHours: 24,
		},
		Agent: config.AgentConfig{MaxSteps: 15},
	}
}

func TestService_ExecutorSolvesJob(t *testing.T) {
	generator := &fakeGenerator{replies: []string{
		`{"plan": "answer directly", "answer_format": "number"}`,
		`{"action": "answer", "answer": 42, "reasoning": "stated in the question"}`,
	}}
	poster := &fakePoster{}

	svc := New(testConfig(), generator, fakeLoader{}, download.New(t.TempDir()), poster, nil)

	job := &jobs.SolveJob{
		ID: "job-1",
		Payload: jobs.JobPayload{
			Email:  "student@example.com",
			URL:    "https://quiz.example.com/q/1",
			Secret: "s3cret",
		},
	}
	questions, err := svc.Executor()(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 1, questions)

	require.Len(t, poster.payloads, 1)
	assert.Equal(t, "student@example.com", poster.payloads[0].Email)
	assert.Equal(t, "s3cret", poster.payloads[0].Secret)
	assert.Equal(t, float64(42), poster.payloads[0].Answer)
}

func TestService_ApplySettings(t *testing.T) {
	generator := &fakeGenerator{replies: []string{`{}`}}
	svc := New(testConfig(), generator, fakeLoader{}, download.New(t.TempDir()), &fakePoster{}, nil)

	require.NoError(t, svc.ApplySettings(config.RuntimeSettings{
		LLMProvider:     config.ProviderAIPipe,
		GeminiModel:     "gemini-2.0-flash",
		AIPipeModel:     "gpt-4o-mini",
		ForceSubmitTime: 90,
		AgentMaxSteps:   5,
	}))

	assert.Equal(t, []string{config.ProviderAIPipe}, generator.applied)

	svc.mu.RLock()
	defer svc.mu.RUnlock()
	assert.Equal(t, 90*time.Second, svc.budget)
	assert.Equal(t, 5, svc.maxSteps)
}

type fakeCleanupStore struct {
	expired     []string
	deletedJobs []string
	deletedData []string
}

func (f *fakeCleanupStore) ExpiredJobIDs(context.Context, time.Time) ([]string, error) {
	return f.expired, nil
}

func (f *fakeCleanupStore) DeleteJob(_ context.Context, jobID string) error {
	f.deletedJobs = append(f.deletedJobs, jobID)
	return nil
}

func (f *fakeCleanupStore) DeleteJobData(_ context.Context, jobID string) error {
	f.deletedData = append(f.deletedData, jobID)
	return nil
}

func TestService_CleanupExpired(t *testing.T) {
	store := &fakeCleanupStore{expired: []string{"old-1", "old-2"}}
	svc := New(testConfig(), &fakeGenerator{replies: []string{`{}`}}, fakeLoader{}, download.New(t.TempDir()), &fakePoster{}, store)

	svc.CleanupExpired(context.Background())

	assert.Equal(t, []string{"old-1", "old-2"}, store.deletedData)
	assert.Equal(t, []string{"old-1", "old-2"}, store.deletedJobs)
}
