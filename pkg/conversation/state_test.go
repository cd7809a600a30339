package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_BeginTurnResetsTurnFields(t *testing.T) {
	s := NewState("sess_1", "banking")
	s.Response = "old response"
	s.RouteTo = "accounts"
	s.Done = true
	s.StepCount = 3

	s.BeginTurn("What is my balance?")

	assert.Equal(t, "What is my balance?", s.UserInput)
	assert.Empty(t, s.Response)
	assert.Empty(t, s.RouteTo)
	assert.False(t, s.Done)
	assert.Zero(t, s.StepCount)

	require.Len(t, s.History, 1)
	assert.Equal(t, "user", s.History[0].Role)
	assert.Equal(t, "What is my balance?", s.History[0].Content)
}

func TestState_BeginTurnKeepsContextAndHistory(t *testing.T) {
	s := NewState("sess_1", "cafe")
	s.Context["total"] = 3.50
	s.BeginTurn("I'd like a latte")
	s.Append("assistant", "One latte, coming up")

	s.BeginTurn("that's all")

	assert.Equal(t, 3.50, s.Context["total"])
	assert.Len(t, s.History, 3)
}

func TestState_MergeAppliesPartialUpdates(t *testing.T) {
	s := NewState("sess_1", "banking")
	s.Response = "keep me"

	s.Merge(Update{
		Context: map[string]any{"user_id": "u42"},
	})
	assert.Equal(t, "keep me", s.Response)
	assert.Equal(t, "u42", s.Context["user_id"])

	s.Merge(Update{Response: "new response", RouteTo: "billing"})
	assert.Equal(t, "new response", s.Response)
	assert.Equal(t, "billing", s.RouteTo)
}

func TestState_MergeNeverFlipsDone(t *testing.T) {
	s := NewState("sess_1", "banking")

	s.Merge(Update{Response: "done now", End: true})

	// Only the dispatch loop flips Done based on the update.
	assert.False(t, s.Done)
}

func TestState_SnapshotIsIndependent(t *testing.T) {
	s := NewState("sess_1", "cafe")
	s.Context["total"] = 3.50
	s.Append("user", "hello")

	snap := s.Snapshot()
	snap.Context["total"] = 99.0
	snap.History[0].Content = "mutated"

	assert.Equal(t, 3.50, s.Context["total"])
	assert.Equal(t, "hello", s.History[0].Content)
}
