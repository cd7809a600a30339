package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/internal/config"
	"github.com/parthardas/helpdesk/internal/logger"
	"github.com/parthardas/helpdesk/pkg/domains"
	"github.com/parthardas/helpdesk/pkg/domains/banking"
	"github.com/parthardas/helpdesk/pkg/domains/cafe"
	"github.com/parthardas/helpdesk/pkg/domains/healthcare"
	"github.com/parthardas/helpdesk/pkg/domains/quiz"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// loadConfig loads and validates configuration, honoring global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(cfg.Logging)
}

// buildProvider constructs the LLM provider, or nil for keyword-only
// routing when no credential is configured.
func buildProvider(cfg *config.Config, log zerolog.Logger) (llm.Provider, error) {
	if cfg.LLM.Provider != "scripted" && cfg.LLM.APIKey == "" {
		log.Warn().Msg("No LLM API key configured, running keyword-only routing")
		return nil, nil
	}

	p, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm provider: %w", err)
	}
	return p, nil
}

// buildBundles assembles the enabled domain bundles.
func buildBundles(cfg *config.Config, provider llm.Provider, log zerolog.Logger) (map[string]*domains.Bundle, error) {
	bundles := make(map[string]*domains.Bundle, len(cfg.Domains.Enabled))

	for _, name := range cfg.Domains.Enabled {
		var (
			b   *domains.Bundle
			err error
		)
		switch name {
		case banking.Name:
			b, err = banking.New(banking.Config{
				DSN:      cfg.Domains.BankingDSN,
				Provider: provider,
				MaxSteps: cfg.Domains.MaxSteps,
				Logger:   log,
			})
		case cafe.Name:
			b, err = cafe.New(cafe.Config{
				Provider: provider,
				MaxSteps: cfg.Domains.MaxSteps,
				Logger:   log,
			})
		case healthcare.Name:
			b, err = healthcare.New(healthcare.Config{
				Provider: provider,
				MaxSteps: cfg.Domains.MaxSteps,
				Logger:   log,
			})
		case quiz.Name:
			b, err = quiz.New(quiz.Config{
				Provider: provider,
				MaxSteps: cfg.Domains.MaxSteps,
				Logger:   log,
			})
		default:
			err = fmt.Errorf("unknown domain %q", name)
		}
		if err != nil {
			closeBundles(bundles)
			return nil, fmt.Errorf("failed to assemble domain %s: %w", name, err)
		}
		bundles[name] = b
	}

	return bundles, nil
}

func closeBundles(bundles map[string]*domains.Bundle) {
	for _, b := range bundles {
		if b.Close != nil {
			_ = b.Close()
		}
	}
}
