package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/llm"
)

func bankingVocab() Vocabulary {
	return Vocabulary{
		Labels: []string{"accounts", "billing", "guidelines", "conversation"},
		Descriptions: []string{
			"accounts: checking account balances",
			"billing: adding billers or making payments",
			"guidelines: policy or document questions",
			"conversation: small talk and anything else",
		},
	}
}

func newDelegate(t *testing.T, p llm.Provider) *Delegate {
	d, err := NewDelegate(p, bankingVocab(), zerolog.Nop())
	require.NoError(t, err)
	return d
}

func TestDelegate_ValidDecision(t *testing.T) {
	p := llm.NewScripted(`{"agent_name": "accounts"}`)
	d := newDelegate(t, p)

	label, err := d.Decide(context.Background(), stateWithInput("how much money do I have"))
	require.NoError(t, err)
	assert.Equal(t, "accounts", label)
}

func TestDelegate_AcceptsEndSentinel(t *testing.T) {
	p := llm.NewScripted(`{"agent_name": "END"}`)
	d := newDelegate(t, p)

	label, err := d.Decide(context.Background(), stateWithInput("thanks, that's all"))
	require.NoError(t, err)
	assert.Equal(t, conversation.RouteEnd, label)
}

func TestDelegate_ToleratesFencesAndProse(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"fenced", "```json\n{\"agent_name\": \"billing\"}\n```"},
		{"prose around json", "Sure! Here is my decision: {\"agent_name\": \"billing\"} Hope that helps."},
		{"extra fields", `{"agent_name": "billing", "query": "pay electric bill"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDelegate(t, llm.NewScripted(tt.output))
			label, err := d.Decide(context.Background(), stateWithInput("pay my bill"))
			require.NoError(t, err)
			assert.Equal(t, "billing", label)
		})
	}
}

func TestDelegate_RejectsUnusableOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"empty", ""},
		{"no json", "I think the accounts agent should handle this."},
		{"malformed json", `{"agent_name": "accounts"`},
		{"label outside vocabulary", `{"agent_name": "wire_transfers"}`},
		{"missing field", `{"agent": "accounts"}`},
		{"wrong type", `{"agent_name": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDelegate(t, llm.NewScripted(tt.output))
			_, err := d.Decide(context.Background(), stateWithInput("anything"))
			require.Error(t, err)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestDelegate_PropagatesProviderError(t *testing.T) {
	p := llm.NewScripted()
	p.EnqueueError(errors.New("503 service unavailable"))
	d := newDelegate(t, p)

	_, err := d.Decide(context.Background(), stateWithInput("anything"))
	require.Error(t, err)

	var perr *llm.ProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestDelegate_PromptCarriesVocabulary(t *testing.T) {
	p := llm.NewScripted(`{"agent_name": "accounts"}`)
	d := newDelegate(t, p)

	_, err := d.Decide(context.Background(), stateWithInput("balance please"))
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].SystemPrompt
	assert.Contains(t, prompt, "accounts")
	assert.Contains(t, prompt, "billing")
	assert.Contains(t, prompt, conversation.RouteEnd)
	assert.Contains(t, prompt, `"agent_name"`)

	require.NotEmpty(t, calls[0].Messages)
	assert.Equal(t, "balance please", calls[0].Messages[len(calls[0].Messages)-1].Content)
}

func TestDelegate_RequiresVocabulary(t *testing.T) {
	_, err := NewDelegate(llm.NewScripted(), Vocabulary{}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewDelegate(nil, bankingVocab(), zerolog.Nop())
	assert.Error(t, err)
}
