package server

import (
	"net/http"

	"github.com/vistalabs/vista/internal/catalog"
	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       common.Version,
		"conversations": s.store.Len(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// handleConfig exposes a redacted configuration view for diagnostics.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"environment":      s.config.Environment,
		"default_language": s.config.DefaultLanguage,
		"cache_backend":    s.config.Cache.Backend,
		"llm_provider":     s.config.Clients.LLMProvider,
		"auth_enabled":     s.config.Auth.JWTSecret != "",
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Message == "" {
		WriteError(w, r, http.StatusBadRequest, "message is required")
		return
	}

	// An authenticated identity always wins over the body's user_id.
	if uc := common.UserContextFromContext(r.Context()); uc != nil && uc.UserID != "" {
		req.UserID = uc.UserID
	}
	if req.UserID == "" {
		req.UserID = common.ResolveUserID(r.Context())
	}
	if req.UserLevel == "" {
		req.UserLevel = common.ResolveUserLevel(r.Context())
	}

	resp, err := s.assistant.Ask(r.Context(), &req)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "ask failed: %v", err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	userID, conversationID := s.conversationParams(r)

	state, err := s.store.Get(r.Context(), userID, conversationID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "failed to load context: %v", err)
		return
	}
	WriteJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	userID, conversationID := s.conversationParams(r)

	if err := s.store.Delete(r.Context(), userID, conversationID); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "failed to delete context: %v", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) conversationParams(r *http.Request) (string, string) {
	userID := common.ResolveUserID(r.Context())
	if uc := common.UserContextFromContext(r.Context()); uc == nil || uc.UserID == "" {
		if v := r.URL.Query().Get("user_id"); v != "" {
			userID = v
		}
	}
	return userID, r.URL.Query().Get("conversation_id")
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"intents": catalog.Intents()})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"tools": catalog.Tools()})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	removed := s.cache.Cleanup(r.Context())
	WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear(r.Context())
	WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

// handleIssueToken mints a JWT for local development and testing. Disabled
// in production; identity should come from the upstream gateway there.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.config.IsProduction() {
		WriteError(w, r, http.StatusForbidden, "token endpoint is disabled in production")
		return
	}

	var req tokenRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "%v", err)
		return
	}
	if req.UserID == "" {
		WriteError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := IssueToken(s.config, req.UserID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "failed to issue token: %v", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if s.config.IsProduction() {
		WriteError(w, r, http.StatusForbidden, "shutdown endpoint is disabled in production")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}
