package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/handler/chat"
	"github.com/zhouzirui/heartline/backend/internal/handler/health"
	"github.com/zhouzirui/heartline/backend/internal/handler/persona"
	"github.com/zhouzirui/heartline/backend/internal/handler/stream"
	"github.com/zhouzirui/heartline/backend/internal/handler/ws"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	personaModel "github.com/zhouzirui/heartline/backend/internal/model/persona"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Chat            chat.Responder
	Personas        personaModel.Store
	ActivePersonaID string
	ContextStore    health.Pinger
	Classifier      health.ReadyChecker
	ModelName       string
	Metrics         metrics.Recorder
	Gatherer        prometheus.Gatherer
	AllowedOrigins  []string
	Logger          *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chat.New(deps.Chat, deps.Metrics, deps.Logger).RegisterRoutes(r)
	stream.New(deps.Chat, deps.Metrics, deps.Logger).RegisterRoutes(r)
	ws.New(deps.Chat, deps.Metrics, deps.Logger, originMatcher(deps.AllowedOrigins)).RegisterRoutes(r)
	health.New(deps.ContextStore, deps.Classifier, deps.ModelName).RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas, deps.ActivePersonaID).RegisterRoutes(api)
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func originMatcher(allowed []string) func(string) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return nil
		}
		set[origin] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := set[origin]
		return ok
	}
}

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	log = log.With(zap.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
