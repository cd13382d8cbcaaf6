package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/heartline/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/heartline/backend/internal/service/emotion"
)

type stubResponder struct {
	err error
}

func (s stubResponder) Respond(_ context.Context, turn chatservice.Turn) (chat.Response, error) {
	if s.err != nil {
		return chat.Response{}, s.err
	}
	result := emotion.NewResult(emotion.Distribution{emotion.Happy: 0.9}, 0, "emo")
	if turn.OnAnalysis != nil {
		turn.OnAnalysis(result)
	}
	return chat.Response{AIResponse: "Glad to hear it!", UserEmotionAnalysis: result, ResponseID: turn.ResponseID, ModelUsed: "llm"}, nil
}

func serve(svc stubResponder, query url.Values) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(svc, nil, nil).RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, "/chat/stream?"+query.Encode(), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestStreamEmitsEventsInOrder(t *testing.T) {
	resp := serve(stubResponder{}, url.Values{"message": {"I got the job"}, "user_id": {"u1"}})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	emotionIdx := strings.Index(body, "event: emotion")
	messageIdx := strings.Index(body, "event: message")
	endIdx := strings.Index(body, "event: end")
	if emotionIdx < 0 || messageIdx < emotionIdx || endIdx < messageIdx {
		t.Fatalf("unexpected event order: %q", body)
	}
	if !strings.Contains(body, `"ai_response":"Glad to hear it!"`) {
		t.Fatalf("missing reply payload: %q", body)
	}
}

func TestStreamRejectsEmptyMessage(t *testing.T) {
	resp := serve(stubResponder{}, url.Values{"message": {"  "}})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamReportsPipelineErrors(t *testing.T) {
	resp := serve(stubResponder{err: emotionservice.ErrClassifierUnavailable}, url.Values{"message": {"hello"}})

	body := resp.Body.String()
	if !strings.Contains(body, "event: error") || !strings.Contains(body, `"status":503`) {
		t.Fatalf("expected error event, got %q", body)
	}
	if strings.Contains(body, "event: end") {
		t.Fatalf("end event should not follow an error: %q", body)
	}
}
