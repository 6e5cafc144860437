package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistalabs/vista/internal/cache"
	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
	"github.com/vistalabs/vista/internal/services/conversation"
)

// stubAssistant echoes a canned response and records the last request.
type stubAssistant struct {
	lastReq *models.AskRequest
	resp    *models.AskResponse
}

func (s *stubAssistant) Ask(_ context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	s.lastReq = req
	if s.resp != nil {
		return s.resp, nil
	}
	return &models.AskResponse{Answer: "ok", Success: true, Language: "pt"}, nil
}

func newTestServer(t *testing.T, mutate func(*common.Config)) (*Server, *stubAssistant) {
	t.Helper()

	config := common.NewDefaultConfig()
	if mutate != nil {
		mutate(config)
	}
	logger := common.NewSilentLogger()
	assistant := &stubAssistant{}

	srv := NewServer(logger, config, assistant,
		conversation.NewStore(logger, config),
		cache.NewMemory(cache.WithLogger(logger)))
	return srv, assistant
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestAskEndpoint(t *testing.T) {
	srv, assistant := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/assistant/ask", map[string]any{
		"message": "Comparar SPY e VTI",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	// Single-tenant mode fills in the default user and level.
	require.NotNil(t, assistant.lastReq)
	assert.Equal(t, "default", assistant.lastReq.UserID)
	assert.Equal(t, "beginner", assistant.lastReq.UserLevel)
}

func TestAskEndpointRejectsEmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/assistant/ask", map[string]any{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskEndpointRejectsUnknownFields(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/assistant/ask", map[string]any{
		"message": "oi", "bogus": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContextRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	require.NoError(t, srv.store.SetLastIntent(context.Background(), "default", "conv-1", "GET_RANKINGS"))

	rec := doRequest(t, srv, http.MethodGet, "/api/assistant/context?conversation_id=conv-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state models.ConversationState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "GET_RANKINGS", state.LastIntent)

	rec = doRequest(t, srv, http.MethodDelete, "/api/assistant/context?conversation_id=conv-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, srv.store.Len())
}

func TestIntentAndToolListings(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/assistant/intents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var intents map[string][]models.Intent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intents))
	assert.Len(t, intents["intents"], 8)

	rec = doRequest(t, srv, http.MethodGet, "/api/assistant/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tools map[string][]models.ToolDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tools))
	assert.Len(t, tools["tools"], 7)
}

func TestCacheEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()
	srv.cache.Set(ctx, "rankings", map[string]any{"limit": 10}, []byte(`{}`))

	rec := doRequest(t, srv, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Entries)

	rec = doRequest(t, srv, http.MethodPost, "/api/cache/cleanup", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/api/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := srv.cache.Get(ctx, "rankings", map[string]any{"limit": 10})
	assert.False(t, ok)
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	srv, assistant := newTestServer(t, func(c *common.Config) {
		c.Auth.JWTSecret = "test-secret"
	})

	// Without a token the API is closed.
	rec := doRequest(t, srv, http.MethodPost, "/api/assistant/ask", map[string]any{"message": "oi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Mint a token through the dev endpoint and retry.
	rec = doRequest(t, srv, http.MethodPost, "/api/auth/token", map[string]any{"user_id": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	var minted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &minted))
	require.NotEmpty(t, minted["token"])

	body, _ := json.Marshal(map[string]any{"message": "oi", "user_id": "mallory"})
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/ask", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+minted["token"])
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req)
	require.Equal(t, http.StatusOK, rec2.Code)

	// The authenticated identity overrides the body's user_id.
	assert.Equal(t, "alice", assistant.lastReq.UserID)
}

func TestShutdownDisabledInProduction(t *testing.T) {
	srv, _ := newTestServer(t, func(c *common.Config) {
		c.Environment = "production"
	})

	rec := doRequest(t, srv, http.MethodPost, "/api/shutdown", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShutdownEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/api/shutdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-srv.ShutdownRequested():
	default:
		t.Fatal("shutdown was not signaled")
	}
}
