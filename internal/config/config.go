package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// Application:
// - QUIZ_SECRET: Shared secret required on /solve requests (required)
// - PORT: HTTP listen port (default: 8000)
// - LOG_LEVEL: Log level name (default: INFO)
// - DATA_DIR: Root directory for per-job workspaces (default: /app/data/quiz-jobs)
// - DB_PATH: SQLite database path (default: <DATA_DIR>/solver.db)
// - WORKER_COUNT: Concurrent solver jobs (default: 1)
// - FORCE_SUBMIT_TIME: Seconds before a question is force-submitted (default: 170)
// - JOB_RETENTION_HOURS: Hours before finished job workspaces are deleted (default: 24)
// - CLEANUP_CRON: Cron expression for workspace cleanup (default: "0 * * * *")
//
// LLM Provider:
// - LLM_PROVIDER: GEMINI or AIPIPE (default: GEMINI)
// - LLM_FALLBACK_ENABLED: Try the other provider on failure (default: true)
// - GEMINI_API_KEY / GEMINI_MODEL / GEMINI_API_URL
// - AIPIPE_API_KEY / AIPIPE_MODEL / AIPIPE_API_URL
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 2048)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.1)
// - LLM_TIMEOUT: Request timeout in seconds (default: 30)
//
// Browser:
// - BROWSER_TIMEOUT: Page load timeout in milliseconds (default: 30000)
// - HEADLESS: Run the browser headless (default: true)
//
// Agent:
// - AGENT_MAX_STEPS: Max reasoning/tool steps per question (default: 15)

type Config struct {
	App     AppConfig     `json:"app"`
	LLM     LLMConfig     `json:"llm"`
	Browser BrowserConfig `json:"browser"`
	Agent   AgentConfig   `json:"agent"`
}

type AppConfig struct {
	QuizSecret        string `json:"quiz_secret"`
	Port              int    `json:"port"`
	LogLevel          string `json:"log_level"`
	DataDir           string `json:"data_dir"`
	DBPath            string `json:"db_path"`
	WorkerCount       int    `json:"worker_count"`
	ForceSubmitTime   int    `json:"force_submit_time"`
	JobRetentionHours int    `json:"job_retention_hours"`
	CleanupCron       string `json:"cleanup_cron"`
}

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderGemini = "GEMINI"
	ProviderAIPipe = "AIPIPE"
)

// LLMConfig holds the configuration for both LLM providers.
// The primary provider is tried first; the other one is used as fallback
// when fallback is enabled.
type LLMConfig struct {
	Provider        string  `json:"provider"`
	FallbackEnabled bool    `json:"fallback_enabled"`
	GeminiAPIKey    string  `json:"gemini_api_key"`
	GeminiModel     string  `json:"gemini_model"`
	GeminiAPIURL    string  `json:"gemini_api_url"`
	AIPipeAPIKey    string  `json:"aipipe_api_key"`
	AIPipeModel     string  `json:"aipipe_model"`
	AIPipeAPIURL    string  `json:"aipipe_api_url"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	Timeout         int     `json:"timeout"`
}

type BrowserConfig struct {
	TimeoutMS int  `json:"timeout_ms"`
	Headless  bool `json:"headless"`
}

type AgentConfig struct {
	MaxSteps int `json:"max_steps"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	dataDir := getEnvString("DATA_DIR", "/app/data/quiz-jobs")

	config := &Config{
		App: AppConfig{
			QuizSecret:        getEnvString("QUIZ_SECRET", ""),
			Port:              getEnvInt("PORT", 8000),
			LogLevel:          getEnvString("LOG_LEVEL", "INFO"),
			DataDir:           dataDir,
			DBPath:            getEnvString("DB_PATH", dataDir+"/solver.db"),
			WorkerCount:       getEnvInt("WORKER_COUNT", 1),
			ForceSubmitTime:   getEnvInt("FORCE_SUBMIT_TIME", 170),
			JobRetentionHours: getEnvInt("JOB_RETENTION_HOURS", 24),
			CleanupCron:       getEnvString("CLEANUP_CRON", "0 * * * *"),
		},
		LLM: LLMConfig{
			Provider:        strings.ToUpper(getEnvString("LLM_PROVIDER", ProviderGemini)),
			FallbackEnabled: getEnvBool("LLM_FALLBACK_ENABLED", true),
			GeminiAPIKey:    getEnvString("GEMINI_API_KEY", ""),
			GeminiModel:     getEnvString("GEMINI_MODEL", "gemini-2.5-flash-lite"),
			GeminiAPIURL:    getEnvString("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
			AIPipeAPIKey:    getEnvString("AIPIPE_API_KEY", ""),
			AIPipeModel:     getEnvString("AIPIPE_MODEL", "gemini-2.5-flash-lite"),
			AIPipeAPIURL:    getEnvString("AIPIPE_API_URL", "https://aipipe.org/openrouter/v1"),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 2048),
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.1),
			Timeout:         getEnvInt("LLM_TIMEOUT", 30),
		},
		Browser: BrowserConfig{
			TimeoutMS: getEnvInt("BROWSER_TIMEOUT", 30000),
			Headless:  getEnvBool("HEADLESS", true),
		},
		Agent: AgentConfig{
			MaxSteps: getEnvInt("AGENT_MAX_STEPS", 15),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.App.QuizSecret == "" {
		return fmt.Errorf("QUIZ_SECRET is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.LLM.Provider != ProviderGemini && c.LLM.Provider != ProviderAIPipe {
		return fmt.Errorf("LLM_PROVIDER must be %s or %s", ProviderGemini, ProviderAIPipe)
	}
	if c.App.ForceSubmitTime <= 0 {
		return fmt.Errorf("FORCE_SUBMIT_TIME must be greater than 0")
	}
	return nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.App.Port)
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
