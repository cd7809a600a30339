package decision

import (
	"context"
	"strings"
	"sync"

	"github.com/parthardas/helpdesk/pkg/conversation"
)

// Rule associates a keyword set with a routing label. Rules are evaluated
// in order; the first rule with any matching keyword wins.
type Rule struct {
	Keywords []string `json:"keywords"`
	Label    string   `json:"label"`
}

// Keyword is the deterministic decision strategy: a priority-ordered rule
// list with a configured default label when nothing matches. Rules can be
// swapped at runtime (see Watcher).
type Keyword struct {
	mu       sync.RWMutex
	rules    []Rule
	fallback string
}

// NewKeyword creates a keyword decider. fallback is returned when no rule
// matches.
func NewKeyword(rules []Rule, fallback string) *Keyword {
	return &Keyword{rules: rules, fallback: fallback}
}

// Strategy names the decision strategy.
func (k *Keyword) Strategy() string {
	return "keyword"
}

// SetRules atomically replaces the rule list.
func (k *Keyword) SetRules(rules []Rule) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rules = rules
}

// Rules returns a copy of the current rule list.
func (k *Keyword) Rules() []Rule {
	k.mu.RLock()
	defer k.mu.RUnlock()

	rules := make([]Rule, len(k.rules))
	copy(rules, k.rules)
	return rules
}

// Decide returns the label of the first matching rule, or the fallback
// label. It never fails and makes no external calls.
func (k *Keyword) Decide(_ context.Context, state *conversation.State) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	input := strings.ToLower(state.UserInput)
	for _, rule := range k.rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(input, strings.ToLower(kw)) {
				return rule.Label, nil
			}
		}
	}

	return k.fallback, nil
}

// Match reports whether any rule matches the input, without consulting the
// fallback. Used by short-circuit checks such as emergency detection.
func (k *Keyword) Match(input string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	lowered := strings.ToLower(input)
	for _, rule := range k.rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.Label, true
			}
		}
	}
	return "", false
}
