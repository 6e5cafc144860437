// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vistalabs/vista/internal/common"
	"github.com/vistalabs/vista/internal/interfaces"
)

// Server is the HTTP front end.
type Server struct {
	config    *common.Config
	logger    *common.Logger
	assistant interfaces.AssistantService
	store     interfaces.ConversationStore
	cache     interfaces.ResponseCache

	httpServer   *http.Server
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates the HTTP server.
func NewServer(logger *common.Logger, config *common.Config, assistant interfaces.AssistantService, store interfaces.ConversationStore, cache interfaces.ResponseCache) *Server {
	s := &Server{
		config:     config,
		logger:     logger,
		assistant:  assistant,
		store:      store,
		cache:      cache,
		shutdownCh: make(chan struct{}),
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler builds the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /api/config", s.handleConfig)

	mux.HandleFunc("POST /api/assistant/ask", s.handleAsk)
	mux.HandleFunc("GET /api/assistant/context", s.handleGetContext)
	mux.HandleFunc("DELETE /api/assistant/context", s.handleDeleteContext)
	mux.HandleFunc("GET /api/assistant/intents", s.handleIntents)
	mux.HandleFunc("GET /api/assistant/tools", s.handleTools)

	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/cache/cleanup", s.handleCacheCleanup)
	mux.HandleFunc("DELETE /api/cache", s.handleCacheClear)

	mux.HandleFunc("POST /api/auth/token", s.handleIssueToken)
	mux.HandleFunc("POST /api/shutdown", s.handleShutdown)

	return Chain(mux,
		RecoveryMiddleware(s.logger),
		CORSMiddleware(),
		CorrelationMiddleware(),
		LoggingMiddleware(s.logger),
		AuthMiddleware(s.logger, s.config),
	)
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// ShutdownRequested signals a development-mode shutdown request.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdownCh
}
