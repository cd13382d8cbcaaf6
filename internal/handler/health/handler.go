package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/heartline/backend/pkg/utils"
)

const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyChecker reports whether a component can serve requests.
type ReadyChecker interface {
	Ready() bool
}

// Status is the body of GET /health.
type Status struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Handler 健康检查
type Handler struct {
	store      Pinger
	classifier ReadyChecker
	model      string
}

func New(store Pinger, classifier ReadyChecker, model string) *Handler {
	return &Handler{store: store, classifier: classifier, model: model}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := Status{Status: StatusOK, Services: map[string]string{}}

	if h.store == nil {
		status.Services["context_store"] = "not configured"
		status.Status = StatusUnhealthy
	} else if err := h.store.Ping(ctx); err != nil {
		status.Services["context_store"] = "error: " + err.Error()
		status.Status = StatusUnhealthy
	} else {
		status.Services["context_store"] = StatusOK
	}

	if h.classifier != nil && h.classifier.Ready() {
		status.Services["emotion_classifier"] = StatusOK
	} else {
		status.Services["emotion_classifier"] = "unavailable"
		status.Status = StatusUnhealthy
	}

	if h.model != "" {
		status.Services["llm"] = h.model
	}

	code := http.StatusOK
	if status.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}
	utils.RespondJSON(w, code, status)
}
