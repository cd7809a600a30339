package conversation

import "context"

// History persists transcripts outside the in-memory store. The archiver
// writes JSONL files; RedisHistory keeps capped lists with TTL expiry.
type History interface {
	Append(ctx context.Context, sessionID string, msg Message) error
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
}
