package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/Darunesh1/tds-quiz-solver/internal/browser"
	"github.com/Darunesh1/tds-quiz-solver/internal/config"
	"github.com/Darunesh1/tds-quiz-solver/internal/download"
	"github.com/Darunesh1/tds-quiz-solver/internal/httpapi"
	"github.com/Darunesh1/tds-quiz-solver/internal/jobs"
	"github.com/Darunesh1/tds-quiz-solver/internal/llm"
	"github.com/Darunesh1/tds-quiz-solver/internal/persistence"
	"github.com/Darunesh1/tds-quiz-solver/internal/service"
	"github.com/Darunesh1/tds-quiz-solver/internal/submit"
	"github.com/Darunesh1/tds-quiz-solver/pkg/file"
	"github.com/Darunesh1/tds-quiz-solver/pkg/log"
)

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()

	cfg, store, err := loadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	defer store.Close()

	log.InitLogger(log.ParseLevel(cfg.App.LogLevel))

	if err := file.EnsureDir(cfg.App.DataDir); err != nil {
		log.Fatal("Failed to create data dir %s: %v", cfg.App.DataDir, err)
	}

	llmClient, err := llm.NewClient(llm.Config{
		Provider:        cfg.LLM.Provider,
		FallbackEnabled: cfg.LLM.FallbackEnabled,
		GeminiAPIKey:    cfg.LLM.GeminiAPIKey,
		GeminiModel:     cfg.LLM.GeminiModel,
		GeminiAPIURL:    cfg.LLM.GeminiAPIURL,
		AIPipeAPIKey:    cfg.LLM.AIPipeAPIKey,
		AIPipeModel:     cfg.LLM.AIPipeModel,
		AIPipeAPIURL:    cfg.LLM.AIPipeAPIURL,
		MaxTokens:       cfg.LLM.MaxTokens,
		Temperature:     cfg.LLM.Temperature,
		Timeout:         cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to create LLM client: %v", err)
	}

	browserMgr := browser.NewManager(cfg.Browser.Headless, time.Duration(cfg.Browser.TimeoutMS)*time.Millisecond)
	defer browserMgr.Close()

	downloader := download.New(cfg.App.DataDir)
	submitter := submit.New()

	queue := jobs.NewQueue(cfg.App.WorkerCount, store)
	svc := service.New(*cfg, llmClient, browserMgr, downloader, submitter, store)
	queue.Start(svc.Executor())
	defer queue.Stop()

	settingsStore, err := config.NewRuntimeSettingsStore(store, cfg.RuntimeSettings())
	if err != nil {
		log.Fatal("Failed to initialize runtime settings: %v", err)
	}

	server := httpapi.NewServer(queue, cfg.App.QuizSecret,
		httpapi.WithLLMStatus(llmClient),
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(svc.ApplySettings),
	)

	cronRunner := cron.New()
	if err := svc.ScheduleCleanup(cronRunner, cfg.App.CleanupCron); err != nil {
		log.Fatal("Failed to schedule cleanup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, cronRunner, server); err != nil {
		log.Fatal("Server error: %v", err)
	}
}

// loadConfig builds the config twice: once from the environment to find
// the database, then again with the persisted runtime settings overlaid.
func loadConfig() (*config.Config, *persistence.SQLiteStore, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, nil, err
	}

	store, err := persistence.NewSQLiteStore(cfg.App.DBPath, cfg.App.DataDir)
	if err != nil {
		return nil, nil, err
	}

	settings, found, err := store.LoadRuntimeSettings()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if found {
		cfg, err = config.NewFromEnv(config.WithRuntimeSettings(settings))
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
	}
	return cfg, store, nil
}

func run(ctx context.Context, cfg *config.Config, cronRunner cronEngine, server httpServer) error {
	cronRunner.Start()
	defer func() {
		<-cronRunner.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.ListenAddr()
		log.Info("Listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
