package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		settings  Settings
		shouldErr bool
	}{
		{"scripted", Settings{Provider: "scripted"}, false},
		{"openai with key", Settings{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test"}, false},
		{"openai without key", Settings{Provider: "openai", Model: "gpt-4o-mini"}, true},
		{"anthropic with key", Settings{Provider: "anthropic", Model: "claude-3-5-haiku-20241022", APIKey: "sk-test"}, false},
		{"anthropic without key", Settings{Provider: "anthropic"}, true},
		{"unknown", Settings{Provider: "groq"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.settings)
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestScripted_ReplaysInOrder(t *testing.T) {
	p := NewScripted("first", "second")

	got, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	// Exhausted script yields an empty completion, not an error
	got, err = p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Equal(t, 3, p.CallCount())
}

func TestScripted_ErrorsConsumedFirst(t *testing.T) {
	p := NewScripted("reply")
	p.EnqueueError(fmt.Errorf("rate limit exceeded (429)"))

	_, err := p.Generate(context.Background(), Request{})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Retryable)
	assert.Equal(t, "scripted", perr.Provider)

	got, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "reply", got)
}

func TestScripted_RecordsRequests(t *testing.T) {
	p := NewScripted("ok")

	_, err := p.Generate(context.Background(), Request{
		SystemPrompt: "route the user",
		Messages:     []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "route the user", calls[0].SystemPrompt)
	assert.Equal(t, "hello", calls[0].Messages[0].Content)
}

func TestWithRetry_RetriesRetryableErrors(t *testing.T) {
	p := NewScripted("recovered")
	p.EnqueueError(errors.New("503 service unavailable"))
	p.EnqueueError(errors.New("connection reset by peer"))

	wrapped := WithRetry(p, 3, time.Millisecond)

	got, err := wrapped.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, p.CallCount())
}

func TestWithRetry_DoesNotRetryNonRetryable(t *testing.T) {
	p := NewScripted("never reached")
	p.EnqueueError(errors.New("401 invalid api key"))

	wrapped := WithRetry(p, 3, time.Millisecond)

	_, err := wrapped.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, p.CallCount())
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	p := NewScripted()
	for i := 0; i < 5; i++ {
		p.EnqueueError(errors.New("429 too many requests"))
	}

	wrapped := WithRetry(p, 2, time.Millisecond)

	_, err := wrapped.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 3, p.CallCount()) // initial attempt + 2 retries
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 too many requests"), true},
		{"server error", errors.New("502 bad gateway"), true},
		{"network reset", errors.New("read: connection reset by peer"), true},
		{"auth failure", errors.New("401 unauthorized"), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryable(tt.err))
		})
	}
}
