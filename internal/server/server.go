// Package server implements the HTTP API in front of the chat assistant:
// chat, message drafts, retrieval search, health, readiness and metrics.
// The server is started by the `kbchat serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/kbchat-go/internal/chat"
)

// writeHeadroom is added to the completion timeout when deriving the write
// timeout, leaving room to render and send the fallback reply.
const writeHeadroom = 5 * time.Second

// New constructs a Server from the provided assistant and config.
func New(assistant answerer, cfg *Config) (*Server, error) {
	if assistant == nil {
		return nil, fmt.Errorf("server: assistant must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = chat.DefaultTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = max(30*time.Second, cfg.CompletionTimeout+writeHeadroom)
	}
	if cfg.WriteTimeout <= cfg.CompletionTimeout {
		return nil, fmt.Errorf("server: write timeout %s must exceed the completion timeout %s",
			cfg.WriteTimeout, cfg.CompletionTimeout)
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		assistant: assistant,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(cfg.MetricsRegistry),
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.routes(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the handler tree: CORS, then request logging, then the mux.
func (s *Server) routes() http.Handler {
	m := s.metrics

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", m.instrument("chat", s.handleChat))
	mux.Handle("POST /api/draft", m.instrument("draft", s.handleDraft))
	mux.Handle("POST /api/search", m.instrument("search", s.handleSearch))
	mux.Handle("GET /api/health", m.instrument("health", s.handleHealth))
	mux.Handle("GET /api/ready", m.instrument("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	return newCORS(s.cfg.CORSOrigins).Handler(requestLogger(s.log, mux))
}

// Handler returns the fully wired HTTP handler. It is used by tests and by
// callers that manage their own listener.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("kbchat server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a size-limited JSON body into dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
