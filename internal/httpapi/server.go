package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Darunesh1/tds-quiz-solver/internal/config"
	"github.com/Darunesh1/tds-quiz-solver/internal/jobs"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// llmStatus reports provider availability for the health endpoint.
type llmStatus interface {
	Provider() string
	GeminiAvailable() bool
	AIPipeAvailable() bool
}

type Server struct {
	queue    *jobs.Queue
	secret   string
	llm      llmStatus
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithLLMStatus(status llmStatus) Option {
	return func(s *Server) {
		s.llm = status
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func NewServer(queue *jobs.Queue, secret string, opts ...Option) *Server {
	s := &Server{
		queue:  queue,
		secret: secret,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/solve", s.handleSolve)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
}
