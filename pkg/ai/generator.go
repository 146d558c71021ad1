package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TextGenerator generates text from a system prompt and user prompt.
// Every hosted or local model backend implements it.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Sampling controls how a backend samples its output.
// Zero values leave the provider default in place.
type Sampling struct {
	Temperature float64
	MaxTokens   int
}

const (
	ProviderOpenAICompat = "openai-compat"
	ProviderGemini       = "gemini"
	ProviderOllama       = "ollama"
)

// ProviderConfig selects and configures a generation backend.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Sampling Sampling
	// Timeout caps each HTTP call. Zero means no client-side limit.
	Timeout time.Duration
}

// NewGenerator builds the TextGenerator for cfg.Provider. An empty provider
// selects the OpenAI-compatible backend, which defaults to Groq.
func NewGenerator(cfg ProviderConfig) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAICompat
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("generation model required")
	}
	switch provider {
	case ProviderOpenAICompat:
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Sampling, cfg.Timeout), nil
	case ProviderGemini:
		return NewGeminiGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Sampling, cfg.Timeout)
	case ProviderOllama:
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, cfg.Sampling, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
