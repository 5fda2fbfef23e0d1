// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jeranaias/aspire/internal/config"
	"github.com/jeranaias/aspire/internal/conversation"
	"github.com/jeranaias/aspire/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize is the maximum request body size (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// DegradedHeader is set on strategy responses that carry the fallback document.
	DegradedHeader = "X-Strategy-Degraded"

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// DEPENDENCIES
// ============================================================================

// StrategyGenerator produces strategy documents.
type StrategyGenerator interface {
	Generate(ctx context.Context, req model.StrategyRequest) (model.StrategyResult, error)
}

// ChatService runs owner-scoped conversations.
type ChatService interface {
	Chat(ctx context.Context, ownerID, message, conversationID string) (conversation.Reply, error)
	Conversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error)
	History(ctx context.Context, ownerID, conversationID string) ([]model.Turn, error)
}

// StrategyLibrary stores saved strategies.
type StrategyLibrary interface {
	SaveStrategy(ctx context.Context, st model.SavedStrategy) (model.SavedStrategy, error)
	ListStrategies(ctx context.Context, ownerID string) ([]model.SavedStrategy, error)
	GetStrategy(ctx context.Context, ownerID, id string) (model.SavedStrategy, error)
	DeleteStrategy(ctx context.Context, ownerID, id string) error
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP API server.
type Server struct {
	cfg    config.ServerConfig
	router *http.ServeMux
	server *http.Server

	strategies StrategyGenerator
	chat       ChatService
	library    StrategyLibrary
	health     Pinger
	logger     *log.Logger

	mu sync.RWMutex
}

// New creates a Server for cfg. Any dependency may be nil; its routes then
// answer 503.
func New(cfg config.ServerConfig, strategies StrategyGenerator, chat ChatService, library StrategyLibrary) *Server {
	s := &Server{
		cfg:        cfg,
		router:     http.NewServeMux(),
		strategies: strategies,
		chat:       chat,
		library:    library,
		logger:     log.Default(),
	}
	s.setupRoutes()
	return s
}

// WithHealthCheck sets the dependency GET /health checks.
func (s *Server) WithHealthCheck(p Pinger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = p
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(l *log.Logger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /ai/generate-strategy", s.handleGenerateStrategy)
	s.router.HandleFunc("POST /ai/chatbot", s.handleChatbot)
	s.router.HandleFunc("GET /ai/conversations", s.handleListConversations)
	s.router.HandleFunc("GET /ai/conversations/{id}", s.handleConversationMessages)

	s.router.HandleFunc("POST /strategies", s.handleSaveStrategy)
	s.router.HandleFunc("GET /strategies", s.handleListStrategies)
	s.router.HandleFunc("GET /strategies/{id}", s.handleGetStrategy)
	s.router.HandleFunc("DELETE /strategies/{id}", s.handleDeleteStrategy)

	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	logger := s.logger
	s.mu.RUnlock()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(DefaultCORSConfig(s.cfg.AllowedOrigins)),
		AuthMiddleware(&AuthConfig{BearerToken: s.cfg.AuthToken}),
		IdentityMiddleware(),
	}
	if s.cfg.RateLimitPerMinute > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimitPerMinute)))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s auth=%t rate_limit=%d", srv.Addr, Version, s.cfg.AuthToken != "", s.cfg.RateLimitPerMinute)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return srv.Shutdown(ctx)
}
