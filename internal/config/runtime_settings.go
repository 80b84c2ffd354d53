package config

import (
	"fmt"
	"strings"
	"sync"
)

// RuntimeSettings are the knobs that can be changed through the API while
// the service is running. They are persisted so a restart keeps them.
type RuntimeSettings struct {
	LLMProvider        string `json:"llm_provider"`
	LLMFallbackEnabled bool   `json:"llm_fallback_enabled"`
	GeminiModel        string `json:"gemini_model"`
	AIPipeModel        string `json:"aipipe_model"`
	ForceSubmitTime    int    `json:"force_submit_time"`
	AgentMaxSteps      int    `json:"agent_max_steps"`
}

func (s RuntimeSettings) Validate() error {
	provider := strings.ToUpper(strings.TrimSpace(s.LLMProvider))
	if provider != ProviderGemini && provider != ProviderAIPipe {
		return fmt.Errorf("llm_provider must be %s or %s", ProviderGemini, ProviderAIPipe)
	}
	if strings.TrimSpace(s.GeminiModel) == "" {
		return fmt.Errorf("gemini_model is required")
	}
	if strings.TrimSpace(s.AIPipeModel) == "" {
		return fmt.Errorf("aipipe_model is required")
	}
	if s.ForceSubmitTime <= 0 {
		return fmt.Errorf("force_submit_time must be greater than 0")
	}
	if s.AgentMaxSteps <= 0 {
		return fmt.Errorf("agent_max_steps must be greater than 0")
	}
	return nil
}

// RuntimeSettings derives the runtime-adjustable view of the config.
func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMProvider:        c.LLM.Provider,
		LLMFallbackEnabled: c.LLM.FallbackEnabled,
		GeminiModel:        c.LLM.GeminiModel,
		AIPipeModel:        c.LLM.AIPipeModel,
		ForceSubmitTime:    c.App.ForceSubmitTime,
		AgentMaxSteps:      c.Agent.MaxSteps,
	}
}

// WithRuntimeSettings overlays persisted runtime settings on top of the
// environment-derived config. Empty fields keep the env values.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if provider := strings.ToUpper(strings.TrimSpace(settings.LLMProvider)); provider != "" {
			c.LLM.Provider = provider
		}
		c.LLM.FallbackEnabled = settings.LLMFallbackEnabled
		if strings.TrimSpace(settings.GeminiModel) != "" {
			c.LLM.GeminiModel = settings.GeminiModel
		}
		if strings.TrimSpace(settings.AIPipeModel) != "" {
			c.LLM.AIPipeModel = settings.AIPipeModel
		}
		if settings.ForceSubmitTime > 0 {
			c.App.ForceSubmitTime = settings.ForceSubmitTime
		}
		if settings.AgentMaxSteps > 0 {
			c.Agent.MaxSteps = settings.AgentMaxSteps
		}
	}
}

// SettingsPersister writes runtime settings to durable storage.
type SettingsPersister interface {
	SaveRuntimeSettings(settings RuntimeSettings) error
	LoadRuntimeSettings() (RuntimeSettings, bool, error)
}

// RuntimeSettingsStore keeps the current runtime settings in memory and
// writes updates through to the persister.
type RuntimeSettingsStore struct {
	persister SettingsPersister

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(persister SettingsPersister, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		persister: persister,
		current:   initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	next.LLMProvider = strings.ToUpper(strings.TrimSpace(next.LLMProvider))
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if s.persister != nil {
		if err := s.persister.SaveRuntimeSettings(next); err != nil {
			return RuntimeSettings{}, err
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
