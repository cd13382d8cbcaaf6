package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	AI         AIConfig
	Classifier ClassifierConfig
	Store      StoreConfig
	Log        LogConfig
	Tracing    TracingConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	classifier, err := loadClassifierConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	tracing, err := loadTracingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		AI:         ai,
		Classifier: classifier,
		Store:      store,
		Log: LogConfig{
			Level:    getEnvOrDefault("LOG_LEVEL", "info"),
			FilePath: getEnvOrDefault("LOG_FILE_PATH", "logs/app.log"),
		},
		Tracing: tracing,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	Environment    string
	AllowedOrigins []string
}

// IsProd 表示是否运行在生产环境。
func (c ServerConfig) IsProd() bool {
	return strings.EqualFold(c.Environment, "production")
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Environment:    getEnvOrDefault("APP_ENV", "development"),
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		cfg.Addr = port
		return cfg, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

// LLM providers.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider      string
	APIKey        string
	AccessKey     string
	SecretKey     string
	Model         string
	BaseURL       string
	Region        string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	MaxTokens     int
	Temperature   float32
	TopP          float32
	MaxAttempts   int
	RetryDelay    time.Duration
	PersonaID     string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != "" && c.OpenAIModel != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

// ModelName 返回当前提供方使用的模型名。
func (c AIConfig) ModelName() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.Model
}

// NewChatModel 使用配置创建一个 Ark 模型实例。生成参数在每次调用时单独传入。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Ark 模型失败: %w", err)
	}
	return chatModel, nil
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	maxTokens, err := parseIntEnv("LLM_MAX_TOKENS", 300)
	if err != nil {
		return AIConfig{}, err
	}

	temperature, err := parseFloat32Env("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseFloat32Env("LLM_TOP_P", 0.9)
	if err != nil {
		return AIConfig{}, err
	}

	attempts, err := parseIntEnv("LLM_MAX_ATTEMPTS", 3)
	if err != nil {
		return AIConfig{}, err
	}
	if attempts < 1 {
		attempts = 1
	}

	delay, err := parseDurationEnv("LLM_RETRY_DELAY", time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:      provider,
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         strings.TrimSpace(os.Getenv("Model")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		TopP:          topP,
		MaxAttempts:   attempts,
		RetryDelay:    delay,
		PersonaID:     getEnvOrDefault("PERSONA_ID", "charlotte"),
	}, nil
}

// Classifier backends.
const (
	BackendHuggingFace = "huggingface"
	BackendLexicon     = "lexicon"
)

// ClassifierConfig 描述情绪与反讽分类模型的配置。
type ClassifierConfig struct {
	Backend         string
	HFToken         string
	HFBaseURL       string
	EmotionModel    string
	SarcasmModel    string
	Timeout         time.Duration
	LexiconFallback bool
}

func loadClassifierConfig() (ClassifierConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("CLASSIFIER_BACKEND", BackendHuggingFace))
	if backend != BackendHuggingFace && backend != BackendLexicon {
		return ClassifierConfig{}, fmt.Errorf("invalid CLASSIFIER_BACKEND value %q", backend)
	}

	timeout, err := parseDurationEnv("CLASSIFIER_TIMEOUT", 15*time.Second)
	if err != nil {
		return ClassifierConfig{}, err
	}

	fallback, err := parseBoolEnv("EMOTION_LEXICON_FALLBACK", true)
	if err != nil {
		return ClassifierConfig{}, err
	}

	return ClassifierConfig{
		Backend:         backend,
		HFToken:         strings.TrimSpace(os.Getenv("HF_API_TOKEN")),
		HFBaseURL:       strings.TrimSpace(os.Getenv("HF_BASE_URL")),
		EmotionModel:    getEnvOrDefault("EMO_MODEL", "j-hartmann/emotion-english-distilroberta-base"),
		SarcasmModel:    getEnvOrDefault("SARCASM_MODEL", "jkhan447/sarcasm-detection-RoBerta-base-POS"),
		Timeout:         timeout,
		LexiconFallback: fallback,
	}, nil
}

// StoreConfig 描述会话上下文与响应缓存。
type StoreConfig struct {
	RedisURL           string
	HistoryLimit       int
	HistoryPromptTurns int
	CacheEnabled       bool
	CacheTTL           time.Duration
}

func loadStoreConfig() (StoreConfig, error) {
	limit, err := parseIntEnv("HISTORY_LIMIT", 10)
	if err != nil {
		return StoreConfig{}, err
	}
	if limit < 1 {
		limit = 1
	}

	turns, err := parseIntEnv("HISTORY_PROMPT_TURNS", 2)
	if err != nil {
		return StoreConfig{}, err
	}
	if turns < 1 {
		turns = 1
	}

	cacheEnabled, err := parseBoolEnv("CACHE_ENABLED", true)
	if err != nil {
		return StoreConfig{}, err
	}

	ttl, err := parseDurationEnv("CACHE_TTL", time.Hour)
	if err != nil {
		return StoreConfig{}, err
	}

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL != "" && !hasAnyPrefix(redisURL, "redis://", "rediss://", "unix://") {
		return StoreConfig{}, fmt.Errorf("invalid REDIS_URL scheme: %q", redisURL)
	}

	return StoreConfig{
		RedisURL:           redisURL,
		HistoryLimit:       limit,
		HistoryPromptTurns: turns,
		CacheEnabled:       cacheEnabled,
		CacheTTL:           ttl,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level    string
	FilePath string
}

// TracingConfig 描述 OpenTelemetry 导出配置。
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func loadTracingConfig() (TracingConfig, error) {
	enabled, err := parseBoolEnv("OTEL_ENABLED", false)
	if err != nil {
		return TracingConfig{}, err
	}
	return TracingConfig{
		Enabled:  enabled,
		Endpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseFloat32Env(key string, defaultValue float32) (float32, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return float32(val), nil
}

// parseDurationEnv 支持 "1.5s" 这类时长，也接受纯数字秒数。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
