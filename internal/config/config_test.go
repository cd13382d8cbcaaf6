package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LLM_PROVIDER", "LLM_MAX_ATTEMPTS", "REDIS_URL", "CACHE_TTL", "CLASSIFIER_BACKEND"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, 300, cfg.AI.MaxTokens)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 1e-6)
	assert.InDelta(t, 0.9, cfg.AI.TopP, 1e-6)
	assert.Equal(t, time.Second, cfg.AI.RetryDelay)
	assert.Equal(t, "charlotte", cfg.AI.PersonaID)
	assert.Equal(t, BackendHuggingFace, cfg.Classifier.Backend)
	assert.True(t, cfg.Classifier.LexiconFallback)
	assert.Equal(t, 10, cfg.Store.HistoryLimit)
	assert.Equal(t, 2, cfg.Store.HistoryPromptTurns)
	assert.Equal(t, time.Hour, cfg.Store.CacheTTL)
}

func TestLoadServerAddrVariants(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := loadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)

	t.Setenv("PORT", "80 80")
	_, err = loadServerConfig()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	_, err := loadAIConfig()
	assert.Error(t, err)

	t.Setenv("REDIS_URL", "localhost:6379")
	_, err = loadStoreConfig()
	assert.Error(t, err)

	t.Setenv("CLASSIFIER_BACKEND", "torch")
	_, err = loadClassifierConfig()
	assert.Error(t, err)
}

func TestParseDurationEnvAcceptsSeconds(t *testing.T) {
	t.Setenv("CACHE_TTL", "90")
	got, err := parseDurationEnv("CACHE_TTL", 0)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got)

	t.Setenv("CACHE_TTL", "1m30s")
	got, err = parseDurationEnv("CACHE_TTL", 0)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got)
}

func TestAIConfigEnabled(t *testing.T) {
	assert.False(t, AIConfig{Provider: ProviderArk, Model: "m"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderArk, Model: "m", APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "gpt"}.Enabled())
	assert.Equal(t, "gpt", AIConfig{Provider: ProviderOpenAI, OpenAIModel: "gpt"}.ModelName())
}
