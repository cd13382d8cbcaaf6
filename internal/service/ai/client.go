package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/heartline/backend/internal/config"
)

// GenerationParams are the sampling settings for one model call.
type GenerationParams struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Client sends a single prompt to a generative model and returns the raw text.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Model() string
}

var errEmptyCompletion = errors.New("model returned no content")

// NewClient builds the client for the configured provider.
func NewClient(ctx context.Context, cfg config.AIConfig) (Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("LLM provider %q is not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewArkClient(ctx, chatModel, cfg.Model)
	}
}

// ArkClient runs the prompt through an eino chain ending in the chat model.
type ArkClient struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	model string
}

// NewArkClient compiles a single-turn chain around chatModel.
func NewArkClient(ctx context.Context, chatModel model.BaseChatModel, modelName string) (*ArkClient, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkClient{chain: runnable, model: modelName}, nil
}

func (c *ArkClient) Generate(ctx context.Context, text string, params GenerationParams) (string, error) {
	msg, err := c.chain.Invoke(ctx, map[string]any{"prompt": text},
		compose.WithChatModelOption(
			model.WithMaxTokens(params.MaxTokens),
			model.WithTemperature(params.Temperature),
			model.WithTopP(params.TopP),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errEmptyCompletion
	}
	return msg.Content, nil
}

func (c *ArkClient) Model() string { return c.model }

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, baseURL, modelName string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: modelName}
}

func (c *OpenAIClient) Generate(ctx context.Context, text string, params GenerationParams) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Model() string { return c.model }
