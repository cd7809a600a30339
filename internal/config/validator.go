package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the whole configuration for internal consistency.
func (v *Validator) Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	if cfg.Server.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent requests cannot be negative")
	}

	if len(cfg.Domains.Enabled) == 0 {
		return fmt.Errorf("at least one domain must be enabled")
	}
	for _, d := range cfg.Domains.Enabled {
		if err := v.ValidateDomain(d); err != nil {
			return err
		}
	}
	if !contains(cfg.Domains.Enabled, cfg.Domains.Default) {
		return fmt.Errorf("default domain %q is not enabled", cfg.Domains.Default)
	}
	if cfg.Domains.MaxSteps < 0 {
		return fmt.Errorf("max steps cannot be negative")
	}

	if cfg.Sessions.MaxIdleMinutes <= 0 {
		return fmt.Errorf("session max idle must be positive")
	}

	switch cfg.LLM.Provider {
	case "", "scripted":
		// No credential needed.
	case "openai", "anthropic":
		if cfg.LLM.APIKey != "" {
			if err := v.ValidateAPIKey(cfg.LLM.APIKey, cfg.LLM.Provider); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	return nil
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateDomain validates a domain name against the known verticals
func (v *Validator) ValidateDomain(domain string) error {
	if contains(KnownDomains(), domain) {
		return nil
	}
	return fmt.Errorf("unknown domain %q (known: %s)", domain, strings.Join(KnownDomains(), ", "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
