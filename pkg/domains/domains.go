// Package domains assembles per-vertical helpdesk bundles: a handler
// registry, a decision strategy, and a configured dispatch loop.
package domains

import (
	"github.com/rs/zerolog"

	"github.com/parthardas/helpdesk/internal/observability"
	"github.com/parthardas/helpdesk/pkg/decision"
	"github.com/parthardas/helpdesk/pkg/dispatch"
	"github.com/parthardas/helpdesk/pkg/handler"
	"github.com/parthardas/helpdesk/pkg/llm"
)

// Bundle is one fully assembled domain, ready to serve turns.
type Bundle struct {
	Name     string
	Registry *handler.Registry
	Loop     *dispatch.Loop

	// Keyword is the domain's keyword decider, exposed so rule files can
	// be hot-reloaded into it.
	Keyword *decision.Keyword

	// Close releases domain-held resources such as database handles.
	// Nil when the domain holds none.
	Close func() error
}

// VocabularyOf derives the delegate vocabulary from a populated registry.
func VocabularyOf(reg *handler.Registry) decision.Vocabulary {
	return decision.Vocabulary{
		Labels:       reg.Labels(),
		Descriptions: reg.Descriptions(),
	}
}

// NewDecider builds the decision strategy for a domain: keyword-only when
// no provider is configured, otherwise an LLM delegate falling back to the
// keyword rules. The keyword decider is returned alongside so callers can
// swap its rules at runtime.
func NewDecider(provider llm.Provider, reg *handler.Registry, rules []decision.Rule, fallback string, logger zerolog.Logger) (decision.Decider, *decision.Keyword, error) {
	keyword := decision.NewKeyword(rules, fallback)
	if provider == nil {
		return keyword, keyword, nil
	}

	delegate, err := decision.NewDelegate(provider, VocabularyOf(reg), logger)
	if err != nil {
		return nil, nil, err
	}

	chain := decision.NewChain(delegate, keyword, logger)
	chain.OnFallback(observability.RecordDecisionFallback)
	return chain, keyword, nil
}
