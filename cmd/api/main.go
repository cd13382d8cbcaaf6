package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/config"
	"github.com/zhouzirui/heartline/backend/internal/handler"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/model/persona"
	"github.com/zhouzirui/heartline/backend/internal/service/ai"
	"github.com/zhouzirui/heartline/backend/internal/service/cache"
	"github.com/zhouzirui/heartline/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/heartline/backend/internal/service/emotion"
	"github.com/zhouzirui/heartline/backend/internal/service/history"
	"github.com/zhouzirui/heartline/backend/internal/service/inference"
	"github.com/zhouzirui/heartline/backend/internal/tracer"
	"github.com/zhouzirui/heartline/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(logger.Options{
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
		IsProd:   cfg.Server.IsProd(),
	})
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Warn("failed to load .env file, continuing with system environment variables only", zap.Error(envErr))
	}

	shutdownTracer := tracer.Init(ctx, cfg.Tracing.Enabled, cfg.Tracing.Endpoint, log)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry)

	// 会话上下文与响应缓存：配置了 REDIS_URL 时使用 Redis，否则退回进程内存。
	var (
		contextStore  history.Store
		responseCache cache.Store
	)
	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable at startup", zap.Error(err))
		}
		contextStore = history.NewRedisStore(rdb, cfg.Store.HistoryLimit)
		if cfg.Store.CacheEnabled {
			responseCache = cache.NewRedis(rdb)
		}
		log.Info("using redis for context and cache", zap.String("addr", opts.Addr))
	} else {
		contextStore = history.NewMemoryStore(cfg.Store.HistoryLimit, 24*time.Hour)
		if cfg.Store.CacheEnabled {
			responseCache = cache.NewMemory(cfg.Store.CacheTTL)
		}
		log.Info("REDIS_URL not set, using in-memory context and cache")
	}

	emotionSvc := emotionservice.NewService(buildClassifiers(cfg.Classifier, recorder, log))

	personaStore := persona.NewMemoryStore(persona.Seed())
	active, ok := persona.Resolve(personaStore, cfg.AI.PersonaID)
	if !ok {
		log.Fatal("unknown persona", zap.String("persona_id", cfg.AI.PersonaID))
	}

	modelName := cfg.AI.ModelName()
	if !cfg.AI.Enabled() {
		log.Fatal("LLM credentials not configured", zap.String("provider", cfg.AI.Provider))
	}
	client, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		log.Fatal("failed to initialize LLM client", zap.Error(err))
	}
	generator := ai.NewGenerator(client, ai.NewValidator(emotionSvc, recorder, log), ai.GeneratorConfig{
		Base: ai.GenerationParams{
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			TopP:        cfg.AI.TopP,
		},
		MaxAttempts: cfg.AI.MaxAttempts,
		RetryDelay:  cfg.AI.RetryDelay,
	}, recorder, log)
	log.Info("LLM client initialized",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", modelName))

	chatService := chat.NewService(chat.Options{
		Analyzer:     emotionSvc,
		Generator:    generator,
		Prompts:      ai.NewPromptBuilder(active, cfg.Store.HistoryPromptTurns),
		History:      contextStore,
		Cache:        responseCache,
		CacheTTL:     cfg.Store.CacheTTL,
		HistoryTurns: cfg.Store.HistoryPromptTurns,
		Metrics:      recorder,
		Logger:       log,
	})

	router := handler.NewRouter(handler.Deps{
		Chat:            chatService,
		Personas:        personaStore,
		ActivePersonaID: active.ID,
		ContextStore:    contextStore,
		Classifier:      emotionSvc,
		ModelName:       modelName,
		Metrics:         recorder,
		Gatherer:        registry,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("Heartline backend listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("persona", active.Name))
	if err := runServer(ctx, srv); err != nil {
		log.Error("server error", zap.Error(err))
	}
}

// buildClassifiers 按配置选择情绪/反讽分类后端。
func buildClassifiers(cfg config.ClassifierConfig, recorder metrics.Recorder, log *zap.Logger) emotionservice.Options {
	opts := emotionservice.Options{Metrics: recorder, Logger: log}

	switch cfg.Backend {
	case config.BackendLexicon:
		opts.Emotion = inference.Lexicon{}
		opts.Sarcasm = inference.SarcasmLexicon{}
		log.Info("using lexicon emotion classifier")
	default:
		if cfg.HFToken == "" {
			log.Warn("HF_API_TOKEN not set, hosted inference may be rate limited")
		}
		opts.Emotion = inference.NewHuggingFace(cfg.HFBaseURL, cfg.HFToken, cfg.EmotionModel, cfg.Timeout)
		opts.Sarcasm = inference.NewHuggingFace(cfg.HFBaseURL, cfg.HFToken, cfg.SarcasmModel, cfg.Timeout)
		if cfg.LexiconFallback {
			opts.Fallback = inference.Lexicon{}
		}
		log.Info("using hosted emotion classifier",
			zap.String("emotion_model", cfg.EmotionModel),
			zap.String("sarcasm_model", cfg.SarcasmModel),
			zap.Bool("lexicon_fallback", cfg.LexiconFallback))
	}
	return opts
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
