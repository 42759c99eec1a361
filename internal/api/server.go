// Package api exposes the medical chatbot over HTTP.
//
// Endpoints:
//
//	GET  /              chat page
//	POST /api/chat      ask the chatbot a question
//	GET  /api/history   conversation history for the current session
//	POST /api/clear     clear the current session's history
//	POST /api/sources   look up relevant knowledge base passages
//	GET  /health        service status
//	GET  /ready         database readiness probe
//
// Sessions ride on an HMAC-signed cookie. Middleware order is
// recovery, logging, rate limiting, security headers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/session"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads against slow clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Chat requests can wait on model generation, so this exceeds the
	// engine's own request timeout.
	WriteTimeout = 90 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second

	defaultRateBurst = 60
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Logger        log.Logger
	Engine        Responder      // nil puts chat endpoints in degraded 503 mode
	Sessions      *session.Store // required
	Pool          *pgxpool.Pool  // nil disables the /ready probe
	SessionSecret []byte         // required, 32+ bytes
	IsDev         bool           // plain-HTTP cookies, no HSTS
	TrustProxy    bool           // honor X-Real-IP / X-Forwarded-For
	RateBurst     int            // per-IP burst, 0 = default 60
}

// Server is the chatbot HTTP server.
type Server struct {
	handler http.Handler
	logger  log.Logger
}

// NewServer wires handlers, session management, and middleware.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sm := &sessionManager{
		store:  cfg.Sessions,
		secret: cfg.SessionSecret,
		isDev:  cfg.IsDev,
		logger: logger,
	}

	mux := http.NewServeMux()
	NewChatHandler(cfg.Engine, sm, cfg.Sessions, logger).RegisterRoutes(mux)
	NewHealthHandler(cfg.Engine != nil, cfg.Pool, logger).RegisterRoutes(mux)
	NewPagesHandler(logger).RegisterRoutes(mux)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newRateLimiter(1.0, burst)

	handler := chain(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		rateLimitMiddleware(rl, cfg.TrustProxy, logger),
		securityHeadersMiddleware(cfg.IsDev),
	)

	return &Server{handler: handler, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until ctx is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
