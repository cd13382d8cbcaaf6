package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/heartline/backend/internal/service/chat"
)

type echoResponder struct {
	mu    sync.Mutex
	users []string
}

func (e *echoResponder) Respond(_ context.Context, turn chatservice.Turn) (chat.Response, error) {
	e.mu.Lock()
	e.users = append(e.users, turn.UserID)
	e.mu.Unlock()
	return chat.Response{
		AIResponse:          "you said: " + turn.Message,
		UserEmotionAnalysis: emotion.NewResult(emotion.Distribution{emotion.Neutral: 1}, 0, "emo"),
		ResponseID:          turn.ResponseID,
		ModelUsed:           "llm",
	}, nil
}

func dial(t *testing.T, svc *echoResponder) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	New(svc, nil, nil, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?user_id=u42"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

type reply struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func TestWebSocketReply(t *testing.T) {
	svc := &echoResponder{}
	conn := dial(t, svc)

	if err := conn.WriteJSON(map[string]any{"type": "message", "data": map[string]string{"text": "hello"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got reply
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != TypeReply || got.Data["ai_response"] != "you said: hello" {
		t.Fatalf("unexpected reply: %+v", got)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.users) != 1 || svc.users[0] != "u42" {
		t.Fatalf("expected user u42, got %v", svc.users)
	}
}

func TestWebSocketPingAndErrors(t *testing.T) {
	conn := dial(t, &echoResponder{})

	_ = conn.WriteJSON(map[string]any{"type": "ping"})
	var got reply
	if err := conn.ReadJSON(&got); err != nil || got.Type != TypePong {
		t.Fatalf("expected pong, got %+v (%v)", got, err)
	}

	_ = conn.WriteJSON(map[string]any{"type": "message", "data": map[string]string{"text": ""}})
	got = reply{}
	if err := conn.ReadJSON(&got); err != nil || got.Type != TypeError || got.Data["detail"] == "" {
		t.Fatalf("expected error, got %+v (%v)", got, err)
	}

	_ = conn.WriteJSON(map[string]any{"type": "audio"})
	got = reply{}
	if err := conn.ReadJSON(&got); err != nil || got.Type != TypeError {
		t.Fatalf("expected error, got %+v (%v)", got, err)
	}
}
