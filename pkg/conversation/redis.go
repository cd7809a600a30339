package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisHistory persists transcripts in Redis lists, one per session, with
// TTL refresh on every write and an optional cap on list length.
type RedisHistory struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	maxMessages int
}

// NewRedisHistory creates a Redis-backed history. A non-positive ttl keeps
// entries forever; a non-positive maxMessages leaves lists uncapped.
func NewRedisHistory(rdb redis.Cmdable, ttl time.Duration, maxMessages int) *RedisHistory {
	return &RedisHistory{rdb: rdb, ttl: ttl, maxMessages: maxMessages}
}

// DialRedis connects to a Redis URL and verifies the connection.
func DialRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func (r *RedisHistory) key(sessionID string) string {
	return fmt.Sprintf("conversation:%s:messages", sessionID)
}

// Append pushes a transcript entry and refreshes the session TTL.
func (r *RedisHistory) Append(ctx context.Context, sessionID string, msg Message) error {
	if err := validateSessionKey(sessionID); err != nil {
		return err
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.key(sessionID)
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		return fmt.Errorf("push message: %w", err)
	}

	if r.maxMessages > 0 {
		if err := r.rdb.LTrim(ctx, key, int64(-r.maxMessages), -1).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to trim transcript list")
		}
	}

	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to refresh transcript TTL")
		}
	}

	return nil
}

// Load reads back the stored transcript of a session.
func (r *RedisHistory) Load(ctx context.Context, sessionID string) ([]Message, error) {
	if err := validateSessionKey(sessionID); err != nil {
		return nil, err
	}

	rows, err := r.rdb.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	messages := make([]Message, 0, len(rows))
	for i, row := range rows {
		var msg Message
		if err := json.Unmarshal([]byte(row), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// Clear deletes the stored transcript of a session.
func (r *RedisHistory) Clear(ctx context.Context, sessionID string) error {
	if err := validateSessionKey(sessionID); err != nil {
		return err
	}

	if err := r.rdb.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	return nil
}

var _ History = (*RedisHistory)(nil)
