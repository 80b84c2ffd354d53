package httpapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darunesh1/tds-quiz-solver/internal/config"
	"github.com/Darunesh1/tds-quiz-solver/internal/jobs"
)

const testSecret = "s3cret"

func newTestServer(t *testing.T, opts ...Option) (*Server, *jobs.Queue) {
	t.Helper()
	queue := jobs.NewQueue(1, nil)
	return NewServer(queue, testSecret, opts...), queue
}

func postSolve(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/solve", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleSolve_AcceptsAndDedupes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postSolve(t, s, solveRequest{
		Email:  "student@example.com",
		Secret: testSecret,
		URL:    "https://quiz.example.com/q/1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp solveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "quiz solving started", resp.Message)

	rec = postSolve(t, s, solveRequest{
		Email:  "student@example.com",
		Secret: testSecret,
		URL:    "https://quiz.example.com/q/1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var dup solveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dup))
	assert.Equal(t, resp.JobID, dup.JobID)
	assert.Equal(t, "quiz is already being solved", dup.Message)
}

func TestHandleSolve_RejectsBadSecret(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postSolve(t, s, solveRequest{
		Email:  "student@example.com",
		Secret: "wrong",
		URL:    "https://quiz.example.com/q/1",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleSolve_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		req  solveRequest
	}{
		{name: "missing email", req: solveRequest{Secret: testSecret, URL: "https://q.example.com"}},
		{name: "email without at sign", req: solveRequest{Email: "nope", Secret: testSecret, URL: "https://q.example.com"}},
		{name: "missing url", req: solveRequest{Email: "a@b.com", Secret: testSecret}},
		{name: "relative url", req: solveRequest{Email: "a@b.com", Secret: testSecret, URL: "/q/1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSolve(t, s, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleSolve_SecretNotExposedInJobList(t *testing.T) {
	s, _ := newTestServer(t)

	postSolve(t, s, solveRequest{Email: "a@b.com", Secret: testSecret, URL: "https://q.example.com/1"})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), testSecret)
	assert.Contains(t, rec.Body.String(), "a@b.com")
}

type fakeLLMStatus struct {
	provider string
	gemini   bool
	aipipe   bool
}

func (f fakeLLMStatus) Provider() string      { return f.provider }
func (f fakeLLMStatus) GeminiAvailable() bool { return f.gemini }
func (f fakeLLMStatus) AIPipeAvailable() bool { return f.aipipe }

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, WithLLMStatus(fakeLLMStatus{provider: "GEMINI", gemini: true}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "GEMINI", resp.LLMProvider)
	assert.True(t, resp.GeminiAvailable)
	assert.False(t, resp.AIPipeAvailable)
}

func TestHandleJobByID(t *testing.T) {
	s, queue := newTestServer(t)

	job, _ := queue.Enqueue(jobs.EnqueueRequest{DedupeKey: "k", Payload: jobs.JobPayload{Email: "a@b.com", URL: "u"}})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got jobs.SolveJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func validSettings() config.RuntimeSettings {
	return config.RuntimeSettings{
		LLMProvider:     config.ProviderGemini,
		GeminiModel:     "gemini-2.0-flash",
		AIPipeModel:     "gpt-4o-mini",
		ForceSubmitTime: 170,
		AgentMaxSteps:   15,
	}
}

func TestHandleSettings_GetAndPut(t *testing.T) {
	store, err := config.NewRuntimeSettingsStore(nil, validSettings())
	require.NoError(t, err)

	var applied config.RuntimeSettings
	s, _ := newTestServer(t,
		WithRuntimeSettingsStore(store),
		WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			applied = next
			return nil
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	next := validSettings()
	next.ForceSubmitTime = 120
	payload, _ := json.Marshal(next)

	req = httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(payload))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 120, applied.ForceSubmitTime)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, 120, current.ForceSubmitTime)
}

func TestHandleSettings_RejectsInvalid(t *testing.T) {
	store, err := config.NewRuntimeSettingsStore(nil, validSettings())
	require.NoError(t, err)
	s, _ := newTestServer(t, WithRuntimeSettingsStore(store))

	bad := validSettings()
	bad.ForceSubmitTime = 0
	payload, _ := json.Marshal(bad)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSettings_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandleJobStream_SendsSnapshot(t *testing.T) {
	s, queue := newTestServer(t)
	queue.Enqueue(jobs.EnqueueRequest{DedupeKey: "k", Payload: jobs.JobPayload{Email: "a@b.com", URL: "u"}})

	server := httptest.NewServer(s.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/jobs/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var list []jobs.SolveJob
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "a@b.com", list[0].Payload.Email)
}
