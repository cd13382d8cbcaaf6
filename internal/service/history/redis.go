package history

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chat_history:"

// RedisStore keeps each session as a Redis list, newest message at the head.
type RedisStore struct {
	rdb   *redis.Client
	limit int
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, limit int) *RedisStore {
	if limit < 1 {
		limit = 1
	}
	return &RedisStore{rdb: rdb, limit: limit}
}

// Append pushes and trims in one transaction so concurrent appends keep arrival order.
func (s *RedisStore) Append(ctx context.Context, sessionID, text string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}

	key := keyPrefix + sessionID
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, text)
		pipe.LTrim(ctx, key, 0, int64(s.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history for %s: %w", sessionID, err)
	}
	return nil
}

// Recent reads the newest n entries and returns them oldest first.
func (s *RedisStore) Recent(ctx context.Context, sessionID string, n int) ([]string, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if n <= 0 {
		return []string{}, nil
	}

	items, err := s.rdb.LRange(ctx, keyPrefix+sessionID, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", sessionID, err)
	}

	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
