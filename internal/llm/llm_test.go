package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmlink/internal/config"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"})
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = New(config.LLMConfig{Provider: "azure", APIKey: "k"})
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = New(config.LLMConfig{Provider: "cohere"})
	assert.Error(t, err)

	p, err := New(config.LLMConfig{Provider: "azure", APIKey: "k", BaseURL: "https://example.openai.azure.com", Deployment: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "azure", p.Name())
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var body struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		Temperature float64   `json:"temperature"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", "gpt-4o-mini", srv.URL)
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), UserPrompt("price tomatoes", 0.3))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "gpt-4o-mini", body.Model)
	assert.InDelta(t, 0.3, body.Temperature, 1e-9)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "user", body.Messages[0].Role)
}

func TestOpenAIProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", "gpt-4o-mini", srv.URL)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), UserPrompt("hi", 0.3))
	assert.Error(t, err)
}

func TestAzureMessages(t *testing.T) {
	out, err := azureMessages([]Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.IsType(t, &azopenai.ChatRequestSystemMessage{}, out[0])
	assert.IsType(t, &azopenai.ChatRequestUserMessage{}, out[1])
	assert.IsType(t, &azopenai.ChatRequestAssistantMessage{}, out[2])

	_, err = azureMessages([]Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}
