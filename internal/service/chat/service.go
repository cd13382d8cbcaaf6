package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	"github.com/zhouzirui/heartline/backend/internal/model/persona"
	"github.com/zhouzirui/heartline/backend/internal/service/ai"
	"github.com/zhouzirui/heartline/backend/internal/service/cache"
	emotionservice "github.com/zhouzirui/heartline/backend/internal/service/emotion"
	"github.com/zhouzirui/heartline/backend/internal/service/history"
)

// ErrAnalysis wraps unexpected emotion analysis failures.
var ErrAnalysis = errors.New("emotion analysis error")

// cacheMinPrimaryScore is the confidence a result needs before it is cached.
const cacheMinPrimaryScore = 0.6

// Analyzer produces the emotion analysis for a message.
type Analyzer interface {
	Analyze(ctx context.Context, text string, history []string) (emotion.Result, error)
}

// Generator produces the therapist reply for a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, analysis emotion.Result, p persona.Persona) (ai.Generation, error)
	Model() string
}

// Options 描述聊天流水线的依赖。Cache 为 nil 时不缓存。
type Options struct {
	Analyzer     Analyzer
	Generator    Generator
	Prompts      *ai.PromptBuilder
	History      history.Store
	Cache        cache.Store
	CacheTTL     time.Duration
	HistoryTurns int
	Metrics      metrics.Recorder
	Logger       *zap.Logger
}

// Turn is one user message flowing through the pipeline.
type Turn struct {
	Message    string
	UserID     string
	ResponseID string
	// OnAnalysis, when set, is called once the emotion analysis is ready.
	OnAnalysis func(emotion.Result)
}

// Service 串联情绪分析、提示词构建、回复生成与上下文记录。
type Service struct {
	analyzer     Analyzer
	generator    Generator
	prompts      *ai.PromptBuilder
	history      history.Store
	cache        cache.Store
	cacheTTL     time.Duration
	historyTurns int
	metrics      metrics.Recorder
	log          *zap.Logger
	tracer       trace.Tracer
	sessions     *sessionLocks
}

// NewService 创建聊天流水线。
func NewService(opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.History == nil {
		opts.History = history.NewMemoryStore(10, time.Hour)
	}
	if opts.HistoryTurns < 1 {
		opts.HistoryTurns = 2
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &Service{
		analyzer:     opts.Analyzer,
		generator:    opts.Generator,
		prompts:      opts.Prompts,
		history:      opts.History,
		cache:        opts.Cache,
		cacheTTL:     opts.CacheTTL,
		historyTurns: opts.HistoryTurns,
		metrics:      opts.Metrics,
		log:          opts.Logger.With(zap.String("component", "chat")),
		tracer:       otel.Tracer("heartline/chat"),
		sessions:     newSessionLocks(),
	}
}

// Persona returns the persona replies are written as.
func (s *Service) Persona() persona.Persona {
	return s.prompts.Persona()
}

// Respond runs one turn through the pipeline.
func (s *Service) Respond(ctx context.Context, turn Turn) (chat.Response, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveRequestLatency(time.Since(start)) }()

	ctx, span := s.tracer.Start(ctx, "chat.respond", trace.WithAttributes(
		attribute.String("chat.user_id", turn.UserID),
		attribute.String("chat.response_id", turn.ResponseID),
	))
	defer span.End()

	log := s.log.With(zap.String("request_id", turn.ResponseID))
	log.Info("chat request", zap.String("message", preview(turn.Message)))

	cacheKey := cache.Key(turn.Message)
	if resp, ok := s.lookupCache(ctx, cacheKey, log); ok {
		s.metrics.IncRequest(metrics.StatusCacheHit)
		span.SetAttributes(attribute.Bool("chat.from_cache", true))
		if turn.OnAnalysis != nil {
			turn.OnAnalysis(resp.UserEmotionAnalysis)
		}
		log.Info("cache hit", zap.Duration("latency", time.Since(start)))
		return resp, nil
	}

	// 同一会话的请求按到达顺序串行处理，保证上下文按到达顺序写入。
	unlock, err := s.sessions.Lock(ctx, turn.UserID)
	if err != nil {
		s.metrics.IncRequest(metrics.StatusPipelineError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "session wait")
		log.Warn("request cancelled while waiting for session", zap.Error(err))
		return chat.Response{}, err
	}
	defer unlock()

	recent, err := s.history.Recent(ctx, turn.UserID, s.historyTurns)
	if err != nil {
		log.Warn("failed to load conversation context", zap.Error(err))
		recent = []string{}
	}

	analysis, err := s.analyze(ctx, turn.Message, recent)
	if err != nil {
		s.metrics.IncRequest(metrics.StatusPipelineError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "emotion analysis")
		log.Error("emotion analysis failed", zap.Error(err))
		if errors.Is(err, emotionservice.ErrClassifierUnavailable) {
			return chat.Response{}, err
		}
		return chat.Response{}, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}
	if turn.OnAnalysis != nil {
		turn.OnAnalysis(analysis)
	}

	prompt := s.prompts.Build(analysis, turn.Message, recent)

	gen, err := s.generate(ctx, prompt, analysis)
	if err != nil {
		s.metrics.IncRequest(metrics.StatusLLMError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation")
		log.Error("LLM error", zap.Error(err))
		return chat.Response{}, err
	}

	if err := s.history.Append(ctx, turn.UserID, turn.Message); err != nil {
		log.Warn("failed to record conversation context", zap.Error(err))
	}

	resp := chat.Response{
		AIResponse:          gen.Reply.Response,
		UserEmotionAnalysis: analysis,
		ResponseID:          turn.ResponseID,
		ModelUsed:           s.generator.Model(),
		FromCache:           false,
	}

	s.storeCache(ctx, cacheKey, resp, log)
	s.metrics.IncRequest(metrics.StatusSuccess)
	log.Info("chat request processed",
		zap.Duration("latency", time.Since(start)),
		zap.Int("attempts", gen.Attempts),
		zap.Bool("aligned", gen.Aligned))
	return resp, nil
}

func (s *Service) analyze(ctx context.Context, text string, recent []string) (emotion.Result, error) {
	ctx, span := s.tracer.Start(ctx, "chat.analyze_emotion")
	defer span.End()

	if s.analyzer == nil {
		return emotion.Result{}, emotionservice.ErrClassifierUnavailable
	}
	result, err := s.analyzer.Analyze(ctx, text, recent)
	if err != nil {
		span.RecordError(err)
		return emotion.Result{}, err
	}
	span.SetAttributes(
		attribute.String("emotion.primary", string(result.PrimaryEmotion)),
		attribute.Float64("emotion.intensity", result.Intensity),
	)
	return result, nil
}

func (s *Service) generate(ctx context.Context, prompt string, analysis emotion.Result) (ai.Generation, error) {
	ctx, span := s.tracer.Start(ctx, "chat.generate_response", trace.WithAttributes(
		attribute.String("llm.model", s.generator.Model()),
	))
	defer span.End()

	gen, err := s.generator.Generate(ctx, prompt, analysis, s.prompts.Persona())
	if err != nil {
		span.RecordError(err)
		return ai.Generation{}, err
	}
	span.SetAttributes(
		attribute.Int("llm.attempts", gen.Attempts),
		attribute.Bool("llm.aligned", gen.Aligned),
	)
	return gen, nil
}

func (s *Service) lookupCache(ctx context.Context, key string, log *zap.Logger) (chat.Response, bool) {
	if s.cache == nil {
		return chat.Response{}, false
	}
	resp, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn("cache check error", zap.Error(err))
		}
		return chat.Response{}, false
	}
	resp.FromCache = true
	return resp, true
}

func (s *Service) storeCache(ctx context.Context, key string, resp chat.Response, log *zap.Logger) {
	if s.cache == nil {
		return
	}
	if resp.UserEmotionAnalysis.PrimaryScore <= cacheMinPrimaryScore {
		log.Debug("skipped caching low-confidence result",
			zap.Float64("primary_score", resp.UserEmotionAnalysis.PrimaryScore))
		return
	}
	if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
		log.Warn("cache set error", zap.Error(err))
	}
}

func preview(msg string) string {
	runes := []rune(msg)
	if len(runes) <= 50 {
		return msg
	}
	return string(runes[:50]) + "..."
}
