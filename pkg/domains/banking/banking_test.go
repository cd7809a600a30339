package banking

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/domains"
	"github.com/parthardas/helpdesk/pkg/llm"
)

func newBundle(t *testing.T, provider llm.Provider) *domains.Bundle {
	t.Helper()
	b, err := New(Config{Provider: provider, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestAccounts_KnownUser(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("what is my account balance")

	result, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "accounts", result.AgentUsed)
	assert.True(t, state.Done)
	assert.Equal(t, "Balances - checking: $250.00, savings: $1500.50", state.Response)
}

func TestAccounts_UnknownUser(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.Context["user_id"] = "user999"
	state.BeginTurn("show my balance")

	_, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "No account found for the given user ID.", state.Response)
}

func TestBilling_PaysWithBillerAndAmount(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("pay $100.50 to Electric Company")

	result, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "billing", result.AgentUsed)
	assert.Equal(t, "Biller 'Electric Company' added and $100.50 paid from user user123's account.", state.Response)
	assert.Equal(t, "Electric Company", state.Context["last_biller"])
}

func TestBilling_AsksForMissingDetails(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("I want to pay my bill")

	_, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Contains(t, state.Response, "biller name and the amount")
}

func TestGuidelines_KnownAndUnknownTopics(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("what is the KYC policy document")

	result, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "guidelines", result.AgentUsed)
	assert.Contains(t, state.Response, "Know Your Customer")

	state.BeginTurn("show me the overdraft policy")
	_, err = b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "No information available on this topic.", state.Response)
}

func TestGuidelines_LoanPolicySpacing(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("what is the loan policy")

	_, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Contains(t, state.Response, "12% interest")
}

func TestConversation_FallbackWithoutProvider(t *testing.T) {
	b := newBundle(t, nil)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("hello there")

	result, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "conversation", result.AgentUsed)
	assert.Contains(t, state.Response, "account balances")
}

func TestDelegateRouting_WithScriptedProvider(t *testing.T) {
	p := llm.NewScripted(`{"agent_name": "accounts"}`, "Hi! How can I help with your banking today?")
	b := newBundle(t, p)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("how much money do I have")

	result, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "accounts", result.AgentUsed)
	assert.Contains(t, state.Response, "Balances - ")
}

func TestDelegateRouting_FallsBackToKeywordOnBadOutput(t *testing.T) {
	// Delegate emits prose; the keyword rules still route on "balance".
	p := llm.NewScripted("the accounts agent please")
	b := newBundle(t, p)

	state := conversation.NewState("sess_1", Name)
	state.BeginTurn("check my balance")

	result, err := b.Loop.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "accounts", result.AgentUsed)
}

func TestParseBiller(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"pay $100.50 to Electric Company", "Electric Company"},
		{"add biller Water Works for 45", "Water Works"},
		{"pay my bill", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseBiller(tt.input), tt.input)
	}
}
