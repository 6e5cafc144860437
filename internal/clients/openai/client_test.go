package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(common.NewSilentLogger(), common.NewDefaultConfig(), "sk-test", WithBaseURL(server.URL))
	require.NoError(t, err)
	return client
}

func TestCompleteSuccess(t *testing.T) {
	var captured chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"SPY tracks the S&P 500."}}]}`))
	})

	answer, err := client.Complete(context.Background(), &models.CompletionRequest{
		System: "You are a financial assistant.",
		Prompt: "What is SPY?",
	})
	require.NoError(t, err)
	assert.Equal(t, "SPY tracks the S&P 500.", answer)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
}

func TestCompleteAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	})

	_, err := client.Complete(context.Background(), &models.CompletionRequest{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), &models.CompletionRequest{Prompt: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(common.NewSilentLogger(), common.NewDefaultConfig(), "")
	assert.Error(t, err)
}
