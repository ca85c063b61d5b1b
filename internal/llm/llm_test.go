package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"performance-meal-planner/internal/config"
)

func TestGroqClient_GenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer groq_key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama-test",
			"choices": [{"message": {"content": "{\"recipes\": []}"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	cfg := &config.Config{LLM: config.LLMConfig{GroqAPIKey: "groq_key", GroqModel: "llama-test", GroqURL: srv.URL, Timeout: time.Second}}
	resp, err := NewGroqClient(cfg).GenerateContent(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"recipes": []}`, resp.Content)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
	assert.Equal(t, "llama-test", resp.Usage.Model)
}

func TestGroqClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := &config.Config{LLM: config.LLMConfig{GroqURL: srv.URL}}
	_, err := NewGroqClient(cfg).GenerateContent(context.Background(), "hello")
	assert.ErrorContains(t, err, "status=429")
}

type countingGenerator struct{ calls int }

func (c *countingGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	c.calls++
	return ContentResponse{Content: prompt}, nil
}

func TestNewRateLimited(t *testing.T) {
	inner := &countingGenerator{}
	assert.Same(t, inner, NewRateLimited(inner, 0))

	limited := NewRateLimited(inner, 600)
	resp, err := limited.GenerateContent(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", resp.Content)
	assert.Equal(t, 1, inner.calls)

	// The bucket is empty now; a cancelled context fails fast.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = limited.GenerateContent(ctx, "y")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestNewTextGenerator(t *testing.T) {
	gen, err := NewTextGenerator(context.Background(), &config.Config{LLM: config.LLMConfig{Provider: ProviderNone}})
	require.NoError(t, err)
	assert.Nil(t, gen)

	_, err = NewTextGenerator(context.Background(), &config.Config{LLM: config.LLMConfig{Provider: "oracle"}})
	assert.Error(t, err)

	gen, err = NewTextGenerator(context.Background(), &config.Config{LLM: config.LLMConfig{Provider: ProviderGroq, RequestsPerMinute: 5}})
	require.NoError(t, err)
	assert.NotNil(t, gen)
}
