package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/heartline/backend/internal/model/chat"
)

// KeyPrefix is bumped whenever the cached payload shape changes.
const KeyPrefix = "chat_resp_v1.2:"

// ErrMiss is returned by Get when nothing is cached for the key.
var ErrMiss = errors.New("cache miss")

// Store caches whole chat responses.
type Store interface {
	Get(ctx context.Context, key string) (chat.Response, error)
	Set(ctx context.Context, key string, resp chat.Response, ttl time.Duration) error
}

// Key derives a stable cache key from the user message.
func Key(message string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.TrimSpace(message)))
	return KeyPrefix + hex.EncodeToString(id[:])
}
