package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	analysis "github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	chathandler "github.com/zhouzirui/heartline/backend/internal/handler/chat"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	chatService "github.com/zhouzirui/heartline/backend/internal/service/chat"
	"github.com/zhouzirui/heartline/backend/pkg/utils"
)

// SSE event names.
const (
	EventEmotion = "emotion"
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

// Handler manages chat turns delivered over Server-Sent Events.
type Handler struct {
	chatSvc chathandler.Responder
	metrics metrics.Recorder
	log     *zap.Logger
}

// New creates a new stream handler
func New(chatSvc chathandler.Responder, recorder metrics.Recorder, log *zap.Logger) *Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, metrics: recorder, log: log.With(zap.String("component", "stream"))}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

// StreamError is the payload of an error event.
type StreamError struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// handleStream sends the emotion analysis as soon as it is ready, then the reply.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	req := chat.Request{
		Message: r.URL.Query().Get("message"),
		UserID:  r.URL.Query().Get("user_id"),
	}
	if detail := chathandler.ValidateRequest(&req); detail != "" {
		h.metrics.IncRequest(metrics.StatusBadRequest)
		utils.RespondError(w, http.StatusBadRequest, detail)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	responseID := chathandler.ResponseID(r)
	log := h.log.With(zap.String("request_id", responseID))

	resp, err := h.chatSvc.Respond(r.Context(), chatService.Turn{
		Message:    req.Message,
		UserID:     req.UserID,
		ResponseID: responseID,
		OnAnalysis: func(result analysis.Result) {
			if err := utils.SendSSEEvent(w, flusher, EventEmotion, result); err != nil {
				log.Warn("failed to send emotion event", zap.Error(err))
			}
		},
	})
	if err != nil {
		status, detail := chathandler.ErrorStatus(err)
		if sendErr := utils.SendSSEEvent(w, flusher, EventError, StreamError{Status: status, Detail: detail}); sendErr != nil {
			log.Warn("failed to send error event", zap.Error(sendErr))
		}
		return
	}

	if err := utils.SendSSEEvent(w, flusher, EventMessage, resp); err != nil {
		log.Warn("failed to send message event", zap.Error(err))
		return
	}
	if err := utils.SendSSEEvent(w, flusher, EventEnd, map[string]any{"response_id": resp.ResponseID, "finished": true}); err != nil {
		log.Warn("failed to send end event", zap.Error(err))
	}
}
