package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	"github.com/zhouzirui/heartline/backend/internal/service/ai"
	chatService "github.com/zhouzirui/heartline/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/heartline/backend/internal/service/emotion"
	"github.com/zhouzirui/heartline/backend/pkg/utils"
)

const maxBodyBytes = 64 << 10

// Responder runs one chat turn.
type Responder interface {
	Respond(ctx context.Context, turn chatService.Turn) (chat.Response, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc Responder
	metrics metrics.Recorder
	log     *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc Responder, recorder metrics.Recorder, log *zap.Logger) *Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		metrics: recorder,
		log:     log.With(zap.String("component", "chat_handler")),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat 处理一轮对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.metrics.IncRequest(metrics.StatusBadRequest)
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if detail := ValidateRequest(&req); detail != "" {
		h.metrics.IncRequest(metrics.StatusBadRequest)
		utils.RespondError(w, http.StatusBadRequest, detail)
		return
	}

	resp, err := h.chatSvc.Respond(r.Context(), chatService.Turn{
		Message:    req.Message,
		UserID:     req.UserID,
		ResponseID: ResponseID(r),
	})
	if err != nil {
		status, detail := ErrorStatus(err)
		utils.RespondError(w, status, detail)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest normalizes req and returns a client-facing message when it is invalid.
func ValidateRequest(req *chat.Request) string {
	req.Normalize()
	err := validate.Struct(req)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, describeField(fe))
	}
	return strings.Join(details, "; ")
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	if field == "userid" {
		field = "user_id"
	}
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("%s must not be empty", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ResponseID echoes X-Request-ID when present and otherwise mints a short id.
func ResponseID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return NewResponseID()
}

// NewResponseID returns an id of the form req_<8 hex>.
func NewResponseID() string {
	id := uuid.New()
	return "req_" + strings.ReplaceAll(id.String(), "-", "")[:8]
}

// ErrorStatus maps pipeline errors onto an HTTP status and detail message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, emotionservice.ErrClassifierUnavailable):
		return http.StatusServiceUnavailable, "Emotion analysis unavailable."
	case errors.Is(err, ai.ErrGeneration):
		return http.StatusInternalServerError, fmt.Sprintf("AI response generation error: %v", err)
	case errors.Is(err, chatService.ErrAnalysis):
		return http.StatusInternalServerError, fmt.Sprintf("Emotion analysis error: %v", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request cancelled."
	default:
		return http.StatusInternalServerError, "Internal server error."
	}
}
