package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type turn struct {
	ID        string
	Content   string
	CreatedAt time.Time
}

// MemoryStore keeps session buffers in process. Idle sessions expire after ttl.
type MemoryStore struct {
	mu       sync.Mutex
	limit    int
	sessions *cache.Cache
}

// NewMemoryStore bootstraps the in-memory store used when Redis is not configured.
func NewMemoryStore(limit int, ttl time.Duration) *MemoryStore {
	if limit < 1 {
		limit = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{
		limit:    limit,
		sessions: cache.New(ttl, 10*time.Minute),
	}
}

// Append adds a message to the session buffer.
func (s *MemoryStore) Append(_ context.Context, sessionID, text string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var turns []turn
	if existing, ok := s.sessions.Get(sessionID); ok {
		turns = existing.([]turn)
	}

	turns = append(turns, turn{
		ID:        uuid.NewString(),
		Content:   text,
		CreatedAt: time.Now().UTC(),
	})
	if len(turns) > s.limit {
		turns = append([]turn(nil), turns[len(turns)-s.limit:]...)
	}

	s.sessions.SetDefault(sessionID, turns)
	return nil
}

// Recent returns up to n messages for the session, oldest first.
func (s *MemoryStore) Recent(_ context.Context, sessionID string, n int) ([]string, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions.Get(sessionID)
	if !ok {
		return []string{}, nil
	}

	turns := existing.([]turn)
	contents := make([]string, len(turns))
	for i, t := range turns {
		contents[i] = t.Content
	}
	return tail(contents, n), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
