package llm

import (
	"context"
	"fmt"
	"time"
)

// Message roles used across providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request contains the parameters for a text-generation call.
type Request struct {
	SystemPrompt string
	Messages     []Message
}

// Provider is an interface for hosted text-generation APIs.
type Provider interface {
	// Generate produces a completion for the given request.
	Generate(ctx context.Context, req Request) (string, error)

	// Name returns the provider name.
	Name() string
}

// Settings configures provider construction.
type Settings struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // "openai", "anthropic", "scripted"
	Model       string  `json:"model" mapstructure:"model"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries  int     `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultSettings returns provider settings suitable for routing decisions:
// a small deterministic model with a tight output budget.
func DefaultSettings() Settings {
	return Settings{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0,
		MaxTokens:   1024,
		MaxRetries:  3,
	}
}

// NewProvider creates a provider from settings. When MaxRetries is positive
// the provider is wrapped with bounded retry on retryable failures.
func NewProvider(s Settings) (Provider, error) {
	var p Provider
	switch s.Provider {
	case "openai":
		if s.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		p = NewOpenAIProvider(s)
	case "anthropic":
		if s.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		p = NewAnthropicProvider(s)
	case "scripted":
		p = NewScripted()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", s.Provider)
	}

	if s.MaxRetries > 0 {
		p = WithRetry(p, s.MaxRetries, 500*time.Millisecond)
	}

	return p, nil
}
