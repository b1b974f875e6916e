// Package server implements the HTTP server that exposes the retrieval
// engine via a small REST API: query, stats, and retrieval context
// endpoints plus health, readiness, and Prometheus metrics.
// The server is started by the `voararag serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voara-ai/voara-rag/internal/contextstore"
	"github.com/voara-ai/voara-rag/internal/logging"
)

// New constructs a Server from the provided retriever, vector store, and
// config. contexts may be nil to disable the retrieval context endpoints.
func New(retriever answerer, store collectionInfoer, contexts contextstore.Store, cfg *Config) (*Server, error) {
	if retriever == nil {
		return nil, fmt.Errorf("server: retriever must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("server: store must not be nil")
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
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	if cfg.APIKey == "" {
		log.Warn("server: no API key configured — authentication disabled")
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	gatherer := prometheus.DefaultGatherer
	if cfg.Registry != nil {
		reg = cfg.Registry
		gatherer = cfg.Registry
	}

	s := &Server{
		retriever: retriever,
		store:     store,
		contexts:  contexts,
		cfg:       cfg,
		log:       log,
		pingers:   cfg.Pingers,
		metrics:   newServerMetrics(reg),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	mux := http.NewServeMux()

	// Unauthenticated operational endpoints.
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Protected API routes: auth first, then per-IP rate limiting.
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.APIKey, rl.middleware(h))
	}
	mux.Handle("POST /api/rag/query", protected(s.handleQuery))
	mux.Handle("GET /api/rag/stats", protected(s.handleStats))
	mux.Handle("GET /api/rag/context", protected(s.handleContext))
	mux.Handle("POST /api/rag/context/reset", protected(s.handleContextReset))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.instrument(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
