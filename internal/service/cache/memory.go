package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zhouzirui/heartline/backend/internal/model/chat"
)

// Memory keeps responses in process.
type Memory struct {
	items *gocache.Cache
}

func NewMemory(defaultTTL time.Duration) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Memory{items: gocache.New(defaultTTL, 10*time.Minute)}
}

func (m *Memory) Get(_ context.Context, key string) (chat.Response, error) {
	if x, found := m.items.Get(key); found {
		return x.(chat.Response), nil
	}
	return chat.Response{}, ErrMiss
}

func (m *Memory) Set(_ context.Context, key string, resp chat.Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.items.Set(key, resp, ttl)
	return nil
}
