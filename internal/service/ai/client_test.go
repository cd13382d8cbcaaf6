package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChatModel struct {
	input   []*schema.Message
	options *model.Options
	reply   string
}

func (m *recordingChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	m.options = model.GetCommonOptions(nil, opts...)
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingChatModel) Stream(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.reply, nil)}), nil
}

func TestArkClientPassesPromptAndParams(t *testing.T) {
	chatModel := &recordingChatModel{reply: `{"response":"hello"}`}
	client, err := NewArkClient(context.Background(), chatModel, "doubao-test")
	require.NoError(t, err)

	prompt := `Current Message: {"braces": true}`
	out, err := client.Generate(context.Background(), prompt, GenerationParams{MaxTokens: 300, Temperature: 0.8, TopP: 0.9})

	require.NoError(t, err)
	assert.Equal(t, `{"response":"hello"}`, out)
	assert.Equal(t, "doubao-test", client.Model())
	require.Len(t, chatModel.input, 1)
	assert.Equal(t, schema.User, chatModel.input[0].Role)
	assert.Equal(t, prompt, chatModel.input[0].Content)
	require.NotNil(t, chatModel.options.Temperature)
	assert.InDelta(t, 0.8, *chatModel.options.Temperature, 1e-6)
	require.NotNil(t, chatModel.options.MaxTokens)
	assert.Equal(t, 300, *chatModel.options.MaxTokens)
}

func TestArkClientEmptyReply(t *testing.T) {
	client, err := NewArkClient(context.Background(), &recordingChatModel{reply: "  "}, "m")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "hi", GenerationParams{})
	assert.ErrorIs(t, err, errEmptyCompletion)
}

func TestOpenAIClientGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"response\":\"hey\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", srv.URL, "gpt-test")
	out, err := client.Generate(context.Background(), "prompt text", GenerationParams{MaxTokens: 300, Temperature: 0.7, TopP: 0.9})

	require.NoError(t, err)
	assert.Equal(t, `{"response":"hey"}`, out)
	assert.Equal(t, "gpt-test", got["model"])
	assert.EqualValues(t, 300, got["max_tokens"])
}

func TestOpenAIClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", srv.URL, "m").Generate(context.Background(), "p", GenerationParams{})
	assert.Error(t, err)
}
