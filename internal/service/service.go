// Package service connects the job queue to the quiz solver and owns
// the periodic cleanup of expired job data.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/Darunesh1/tds-quiz-solver/internal/agent"
	"github.com/Darunesh1/tds-quiz-solver/internal/config"
	"github.com/Darunesh1/tds-quiz-solver/internal/download"
	"github.com/Darunesh1/tds-quiz-solver/internal/jobs"
	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

// settingsApplier pushes runtime settings into the LLM client.
type settingsApplier interface {
	ApplySettings(provider string, fallbackEnabled bool, geminiModel, aipipeModel string)
}

// cleanupStore is the persistence surface cleanup needs.
type cleanupStore interface {
	ExpiredJobIDs(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteJob(ctx context.Context, jobID string) error
	DeleteJobData(ctx context.Context, jobID string) error
}

// Service builds solvers for queued jobs and applies runtime settings.
type Service struct {
	generator  agent.Generator
	loader     agent.PageLoader
	downloader *download.Downloader
	poster     agent.AnswerPoster
	store      cleanupStore

	retention time.Duration

	mu       sync.RWMutex
	budget   time.Duration
	maxSteps int
}

// New wires the service from the initial config and its collaborators.
func New(cfg config.Config, generator agent.Generator, loader agent.PageLoader, downloader *download.Downloader, poster agent.AnswerPoster, store cleanupStore) *Service {
	return &Service{
		generator:  generator,
		loader:     loader,
		downloader: downloader,
		poster:     poster,
		store:      store,
		retention:  time.Duration(cfg.App.JobRetentionHours) * time.Hour,
		budget:     time.Duration(cfg.App.ForceSubmitTime) * time.Second,
		maxSteps:   cfg.Agent.MaxSteps,
	}
}

// Executor returns the queue executor that solves one quiz chain per job.
func (s *Service) Executor() jobs.Executor {
	return func(ctx context.Context, job *jobs.SolveJob) (int, error) {
		s.mu.RLock()
		solverCfg := agent.Config{MaxSteps: s.maxSteps, QuestionBudget: s.budget}
		s.mu.RUnlock()

		solver := agent.NewSolver(s.generator, s.loader, s.downloader, s.poster, solverCfg)
		return solver.SolveChain(ctx, agent.Request{
			JobID:  job.ID,
			Email:  job.Payload.Email,
			Secret: job.Payload.Secret,
			URL:    job.Payload.URL,
		})
	}
}

// ApplySettings pushes updated runtime settings into the running service.
// Jobs picked up after the call use the new values.
func (s *Service) ApplySettings(next config.RuntimeSettings) error {
	if applier, ok := s.generator.(settingsApplier); ok {
		applier.ApplySettings(next.LLMProvider, next.LLMFallbackEnabled, next.GeminiModel, next.AIPipeModel)
	}

	s.mu.Lock()
	s.budget = time.Duration(next.ForceSubmitTime) * time.Second
	s.maxSteps = next.AgentMaxSteps
	s.mu.Unlock()

	log.Info("Runtime settings applied: provider=%s force_submit=%ds max_steps=%d",
		next.LLMProvider, next.ForceSubmitTime, next.AgentMaxSteps)
	return nil
}

var cleanupGroup singleflight.Group

// ScheduleCleanup registers the expired-job sweep on the given cron.
func (s *Service) ScheduleCleanup(c *cron.Cron, cronExpr string) error {
	if s.store == nil || s.retention <= 0 {
		return nil
	}
	_, err := c.AddFunc(cronExpr, func() {
		_, _, _ = cleanupGroup.Do("cleanup", func() (any, error) {
			s.CleanupExpired(context.Background())
			return nil, nil
		})
	})
	if err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	return nil
}

// CleanupExpired removes terminal jobs older than the retention window,
// along with their on-disk workspaces.
func (s *Service) CleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	ids, err := s.store.ExpiredJobIDs(ctx, cutoff)
	if err != nil {
		log.Error("Failed to list expired jobs: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	removed := 0
	for _, id := range ids {
		if err := s.store.DeleteJobData(ctx, id); err != nil {
			log.Error("Failed to delete data for expired job %s: %v", id, err)
			continue
		}
		if err := s.store.DeleteJob(ctx, id); err != nil {
			log.Error("Failed to delete expired job %s: %v", id, err)
			continue
		}
		removed++
	}
	log.Info("Cleanup removed %d expired jobs", removed)
}
