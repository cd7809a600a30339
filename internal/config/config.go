package config

import (
	"encoding/json"
	"fmt"

	"github.com/parthardas/helpdesk/internal/logger"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// Config represents the main helpdesk configuration
type Config struct {
	// Server holds the HTTP gateway settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// LLM holds provider settings shared by routing and handlers
	LLM llm.Settings `json:"llm" mapstructure:"llm"`

	// Domains selects the verticals to serve
	Domains DomainsConfig `json:"domains" mapstructure:"domains"`

	// Sessions holds session store and archival settings
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Routing holds keyword rule file settings
	Routing RoutingConfig `json:"routing" mapstructure:"routing"`

	// Logging
	Logging logger.Config `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds gateway server configuration
type ServerConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	MaxConcurrent      int    `json:"max_concurrent" mapstructure:"max_concurrent"`
	ReadTimeoutSecs    int    `json:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs   int    `json:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// DomainsConfig selects and parameterizes the served verticals
type DomainsConfig struct {
	Enabled    []string `json:"enabled" mapstructure:"enabled"`
	Default    string   `json:"default" mapstructure:"default"`
	BankingDSN string   `json:"banking_dsn" mapstructure:"banking_dsn"`
	MaxSteps   int      `json:"max_steps" mapstructure:"max_steps"`
}

// SessionsConfig holds session lifecycle configuration
type SessionsConfig struct {
	MaxIdleMinutes  int    `json:"max_idle_minutes" mapstructure:"max_idle_minutes"`
	SweepSchedule   string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
	ArchiveDir      string `json:"archive_dir" mapstructure:"archive_dir"`
	RedisURL        string `json:"redis_url" mapstructure:"redis_url"`
	RedisTTLMinutes int    `json:"redis_ttl_minutes" mapstructure:"redis_ttl_minutes"`
	MaxHistory      int    `json:"max_history" mapstructure:"max_history"`
}

// RoutingConfig holds keyword routing rule settings
type RoutingConfig struct {
	// RulesFile optionally overrides the built-in keyword rules for the
	// default domain.
	RulesFile string `json:"rules_file" mapstructure:"rules_file"`

	// Watch reloads the rules file on change.
	Watch bool `json:"watch" mapstructure:"watch"`
}

// KnownDomains lists the verticals this build can serve.
func KnownDomains() []string {
	return []string{"banking", "cafe", "healthcare", "quiz"}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			RateLimitPerMinute: 60,
			MaxConcurrent:      10,
			ReadTimeoutSecs:    30,
			WriteTimeoutSecs:   120,
		},
		LLM: llm.DefaultSettings(),
		Domains: DomainsConfig{
			Enabled:  KnownDomains(),
			Default:  "banking",
			MaxSteps: 5,
		},
		Sessions: SessionsConfig{
			MaxIdleMinutes:  30,
			SweepSchedule:   "*/5 * * * *",
			RedisTTLMinutes: 60,
			MaxHistory:      50,
		},
		Routing: RoutingConfig{
			Watch: true,
		},
		Logging: logger.DefaultConfig(),
	}
}

// String returns the config as a JSON string with secrets masked
func (c *Config) String() string {
	masked := *c
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "***"
	}
	data, err := json.MarshalIndent(masked, "", "  ")
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
