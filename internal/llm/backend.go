package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Family groups backends by request/response shape
type Family string

const (
	// FamilyChat backends return the assistant message content verbatim
	FamilyChat Family = "chat"
	// FamilyStructured backends wrap the prompt in a provider envelope and
	// return a nested output field
	FamilyStructured Family = "structured"
)

// Provider names accepted by NewBackend
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

const defaultHTTPTimeout = 60 * time.Second

// Backend is one language-model endpoint that turns a system+user prompt pair into text
type Backend interface {
	Name() string
	Family() Family
	Complete(ctx context.Context, system, user string) (string, error)
}

// ProviderConfig selects and configures a backend
type ProviderConfig struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	// BaseURL overrides the provider endpoint (tests, proxies)
	BaseURL string
}

// NewBackend builds the backend named by cfg.Provider.
// An empty provider returns a nil backend and no error: the deployment has no LLM.
func NewBackend(cfg ProviderConfig) (Backend, error) {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}

	switch cfg.Provider {
	case "":
		return nil, nil
	case ProviderOpenAI:
		return newChatBackend(ProviderOpenAI, defaultOpenAIURL, defaultOpenAIModel, cfg, httpClient), nil
	case ProviderOpenRouter:
		return newChatBackend(ProviderOpenRouter, defaultOpenRouterURL, defaultOpenRouterModel, cfg, httpClient), nil
	case ProviderAnthropic:
		return newAnthropicBackend(cfg, httpClient), nil
	case ProviderGemini:
		return newGeminiBackend(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
