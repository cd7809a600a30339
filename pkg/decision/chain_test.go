package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parthardas/helpdesk/pkg/llm"
)

func TestChain_UsesPrimaryWhenItSucceeds(t *testing.T) {
	delegate := newDelegate(t, llm.NewScripted(`{"agent_name": "billing"}`))
	keyword := NewKeyword(bankingRules(), "conversation")
	chain := NewChain(delegate, keyword, zerolog.Nop())

	label, err := chain.Decide(context.Background(), stateWithInput("pay my bill"))
	require.NoError(t, err)
	assert.Equal(t, "billing", label)
}

func TestChain_FallsBackOnParseError(t *testing.T) {
	// Delegate returns prose instead of JSON
	delegate := newDelegate(t, llm.NewScripted("the accounts agent please"))
	keyword := NewKeyword(bankingRules(), "conversation")
	chain := NewChain(delegate, keyword, zerolog.Nop())

	fallbacks := 0
	chain.OnFallback(func(strategy string) {
		fallbacks++
		assert.Equal(t, "delegate", strategy)
	})

	label, err := chain.Decide(context.Background(), stateWithInput("what is my balance"))
	require.NoError(t, err)
	assert.Equal(t, "accounts", label)
	assert.Equal(t, 1, fallbacks)
}

func TestChain_FallsBackOnInvalidLabel(t *testing.T) {
	// Label outside the fixed vocabulary must never propagate
	delegate := newDelegate(t, llm.NewScripted(`{"agent_name": "wire_transfers"}`))
	keyword := NewKeyword(bankingRules(), "conversation")
	chain := NewChain(delegate, keyword, zerolog.Nop())

	label, err := chain.Decide(context.Background(), stateWithInput("what is my balance"))
	require.NoError(t, err)
	assert.Equal(t, "accounts", label)
}

func TestChain_FallsBackOnProviderError(t *testing.T) {
	p := llm.NewScripted()
	p.EnqueueError(errors.New("429 too many requests"))
	delegate := newDelegate(t, p)
	keyword := NewKeyword(bankingRules(), "conversation")
	chain := NewChain(delegate, keyword, zerolog.Nop())

	label, err := chain.Decide(context.Background(), stateWithInput("pay the water biller"))
	require.NoError(t, err)
	assert.Equal(t, "billing", label)
}

func TestChain_Strategy(t *testing.T) {
	delegate := newDelegate(t, llm.NewScripted())
	keyword := NewKeyword(bankingRules(), "conversation")
	chain := NewChain(delegate, keyword, zerolog.Nop())

	assert.Equal(t, "delegate+keyword", chain.Strategy())
}
