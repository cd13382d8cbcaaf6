package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStoreAppendAndRecent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, 3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "user-1", fmt.Sprintf("m%d", i)))
	}

	got, err := store.Recent(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m5"}, got)

	stored, err := mr.List("chat_history:user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m5", "m4", "m3"}, stored)
}

func TestRedisStoreEmptySession(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, 10)

	got, err := store.Recent(context.Background(), "nobody", 2)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestRedisStoreConnectionError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewRedisStore(rdb, 10)
	mr.Close()

	_, err := store.Recent(context.Background(), "user-1", 2)
	assert.Error(t, err)
	assert.Error(t, store.Append(context.Background(), "user-1", "hi"))
}
