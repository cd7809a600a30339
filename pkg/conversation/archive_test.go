package conversation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupArchiver(t *testing.T) *Archiver {
	a, err := NewArchiver(t.TempDir())
	require.NoError(t, err)
	return a
}

func TestArchiver_AppendAndLoad(t *testing.T) {
	a := setupArchiver(t)
	ctx := context.Background()

	require.NoError(t, a.Append(ctx, "sess_1", Message{Role: "user", Content: "hello", Timestamp: time.Now().UTC()}))
	require.NoError(t, a.Append(ctx, "sess_1", Message{Role: "assistant", Content: "hi there", Timestamp: time.Now().UTC()}))

	messages, err := a.Load(ctx, "sess_1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestArchiver_LoadMissingSession(t *testing.T) {
	a := setupArchiver(t)

	messages, err := a.Load(context.Background(), "never-written")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestArchiver_ValidatesSessionKeys(t *testing.T) {
	a := setupArchiver(t)
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"path traversal", "../etc/passwd"},
		{"forward slash", "a/b"},
		{"backslash", "a\\b"},
		{"null byte", "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, a.Append(ctx, tt.key, Message{Role: "user", Content: "x"}))
			_, err := a.Load(ctx, tt.key)
			assert.Error(t, err)
		})
	}
}

func TestArchiver_SkipsCorruptLines(t *testing.T) {
	a := setupArchiver(t)
	ctx := context.Background()

	require.NoError(t, a.Append(ctx, "sess_1", Message{Role: "user", Content: "valid"}))

	f, err := os.OpenFile(a.path("sess_1"), os.O_WRONLY|os.O_APPEND, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, a.Append(ctx, "sess_1", Message{Role: "assistant", Content: "also valid"}))

	messages, err := a.Load(ctx, "sess_1")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestArchiver_ListAndClear(t *testing.T) {
	a := setupArchiver(t)
	ctx := context.Background()

	require.NoError(t, a.Append(ctx, "sess_1", Message{Role: "user", Content: "x"}))
	require.NoError(t, a.Append(ctx, "sess_2", Message{Role: "user", Content: "y"}))

	ids, err := a.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sess_1", "sess_2"}, ids)

	require.NoError(t, a.Clear(ctx, "sess_1"))
	// Clearing twice is a no-op
	require.NoError(t, a.Clear(ctx, "sess_1"))

	ids, err = a.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"sess_2"}, ids)
}
