package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy/middleware"
)

// ReadyCheck probes one backing dependency for the readiness endpoint.
type ReadyCheck func(ctx context.Context) error

// Server is the HTTP server for the AI proxy and conversation API.
type Server struct {
	config         config.ServerConfig
	auth           config.AuthConfig
	proxyHandler   *proxy.Handler
	metricsHandler http.Handler
	readyChecks    map[string]ReadyCheck

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
}

// NewServer creates the HTTP server. metricsHandler may be nil when the
// metrics endpoint is disabled; readyChecks may be nil.
func NewServer(cfg config.ServerConfig, auth config.AuthConfig, proxyHandler *proxy.Handler, metricsHandler http.Handler, readyChecks map[string]ReadyCheck) *Server {
	return &Server{
		config:         cfg,
		auth:           auth,
		proxyHandler:   proxyHandler,
		metricsHandler: metricsHandler,
		readyChecks:    readyChecks,
		shutdownChan:   make(chan struct{}),
		logger:         slog.Default().With("component", "server"),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, letting in-flight completions
// finish within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown",
			"timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and the middleware chain. The /ai/
// routes require tenant authentication; health, readiness, and metrics do
// not.
func (s *Server) setupRoutes() http.Handler {
	authed := http.NewServeMux()
	authed.HandleFunc("POST /ai/chat/completions", s.proxyHandler.Completions)
	authed.HandleFunc("POST /ai/conversations", s.proxyHandler.CreateConversation)
	authed.HandleFunc("GET /ai/conversations", s.proxyHandler.ListConversations)
	authed.HandleFunc("GET /ai/conversations/{id}", s.proxyHandler.GetConversation)
	authed.HandleFunc("PATCH /ai/conversations/{id}", s.proxyHandler.UpdateConversation)
	authed.HandleFunc("DELETE /ai/conversations/{id}", s.proxyHandler.DeleteConversation)
	authed.HandleFunc("GET /ai/conversations/{id}/messages", s.proxyHandler.ListMessages)

	mux := http.NewServeMux()
	mux.Handle("/ai/", middleware.TenantAuth(s.auth)(authed))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	var handler http.Handler = mux
	handler = middleware.CORS(s.config.CORS)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	return handler
}
