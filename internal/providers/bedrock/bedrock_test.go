package bedrock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockBedrockClaudeResponse(content string) map[string]any {
	return map[string]any{
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": content},
		},
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

func TestNew_RequiresRegion(t *testing.T) {
	_, err := New(registry.Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestNewWithOptions_RequiresRegion(t *testing.T) {
	_, err := NewWithOptions()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestNewWithOptions_BuildsFromOptions(t *testing.T) {
	p, err := NewWithOptions(WithRegion("us-east-1"), WithMaxRetries(7), WithRateLimit(4))
	require.NoError(t, err)
	require.NotNil(t, p)

	b, ok := p.(*Bedrock)
	require.True(t, ok)
	assert.Equal(t, 7, b.maxRetries)
	assert.NotNil(t, b.limiter)
}

func TestGenerate_ClaudeModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/invoke")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(mockBedrockClaudeResponse("the council convenes"))
	}))
	defer server.Close()

	p, err := New(registry.Config{"region": "us-east-1", "endpoint": server.URL})
	require.NoError(t, err)

	res, err := p.Generate(context.Background(), "what should we build?", "anthropic.claude-3-sonnet-20240229-v1:0", council.SamplingConfig{Temperature: 0.7})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "the council convenes", res.Content)
	assert.Equal(t, 30, res.TokensUsed)
}

func TestGenerate_UnsupportedModelFamilyCapturedNotReturned(t *testing.T) {
	p, err := New(registry.Config{"region": "us-east-1"})
	require.NoError(t, err)

	res, callErr := p.Generate(context.Background(), "hello", "amazon.titan-text-express-v1", council.SamplingConfig{})
	require.NoError(t, callErr, "Provider.Generate must never return a Go error")
	assert.False(t, res.Success())
	assert.Contains(t, res.Error.Error(), "unsupported model family")
}

func TestGenerate_ThrottlingCapturedAsRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Too many requests, please wait before trying again.",
			"__type":  "ThrottlingException",
		})
	}))
	defer server.Close()

	p, err := New(registry.Config{"region": "us-east-1", "endpoint": server.URL})
	require.NoError(t, err)

	res, callErr := p.Generate(context.Background(), "hello", "anthropic.claude-3-haiku-20240307-v1:0", council.SamplingConfig{})
	require.NoError(t, callErr)
	assert.False(t, res.Success())
	assert.Contains(t, res.Error.Error(), "rate limit")
}
