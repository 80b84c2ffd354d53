package llm

import (
	"fmt"
	"strings"
)

// Provider names.
const (
	ProviderGemini = "GEMINI"
	ProviderAIPipe = "AIPIPE"
)

// Config holds the configuration for the LLM client.
// Two providers are supported: Gemini's native REST API and AIpipe's
// OpenAI-compatible proxy. The primary provider is tried first; when
// fallback is enabled the other provider is tried on failure.
type Config struct {
	Provider        string  `json:"provider"`
	FallbackEnabled bool    `json:"fallback_enabled"`

	GeminiAPIKey string `json:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model"`
	GeminiAPIURL string `json:"gemini_api_url"`

	AIPipeAPIKey string `json:"aipipe_api_key"`
	AIPipeModel  string `json:"aipipe_model"`
	AIPipeAPIURL string `json:"aipipe_api_url"`

	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	provider := strings.ToUpper(c.Provider)
	if provider != ProviderGemini && provider != ProviderAIPipe {
		return fmt.Errorf("provider must be %s or %s", ProviderGemini, ProviderAIPipe)
	}
	if provider == ProviderGemini && c.GeminiAPIKey == "" && !c.FallbackEnabled {
		return fmt.Errorf("gemini API key is required")
	}
	if provider == ProviderAIPipe && c.AIPipeAPIKey == "" && !c.FallbackEnabled {
		return fmt.Errorf("aipipe API key is required")
	}
	if c.GeminiAPIKey == "" && c.AIPipeAPIKey == "" {
		return fmt.Errorf("at least one provider API key is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// providerOrder returns the providers to try, primary first.
func (c *Config) providerOrder() []string {
	primary := strings.ToUpper(c.Provider)
	if !c.FallbackEnabled {
		return []string{primary}
	}
	if primary == ProviderGemini {
		return []string{ProviderGemini, ProviderAIPipe}
	}
	return []string{ProviderAIPipe, ProviderGemini}
}
