package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/heartline/backend/internal/model/chat"
)

// Redis stores responses as JSON strings with an expiry.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) (chat.Response, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return chat.Response{}, ErrMiss
	}
	if err != nil {
		return chat.Response{}, fmt.Errorf("read cached response: %w", err)
	}

	var resp chat.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return chat.Response{}, fmt.Errorf("decode cached response: %w", err)
	}
	return resp, nil
}

func (r *Redis) Set(ctx context.Context, key string, resp chat.Response, ttl time.Duration) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := r.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("write cached response: %w", err)
	}
	return nil
}
