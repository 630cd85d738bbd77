package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/taskmesh/internal/events"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/registry"
	"github.com/hugo-lorenzo-mato/taskmesh/internal/web/sse"
)

// Server exposes the Task State Registry over HTTP: a JSON snapshot at
// /api/registry and an SSE delta stream at /api/stream, both read-only and
// both backed by the same Registry and EventBus the terminal renderer uses.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	logger     *slog.Logger
	registry   *registry.Registry
	sseHandler *sse.Handler
}

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableCORS      bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    0, // SSE connections are long-lived; no write deadline
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"http://localhost:5173"},
		EnableCORS:      true,
	}
}

// New creates a Server bound to reg and bus. reg.Snapshot feeds GET
// /api/registry; bus feeds the SSE stream at GET /api/stream.
func New(cfg Config, logger *slog.Logger, reg *registry.Registry, bus *events.EventBus) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     cfg,
		logger:     logger,
		registry:   reg,
		sseHandler: sse.NewHandler(bus),
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupRouter configures the Chi router with middleware and routes.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/api/registry", s.handleRegistry)
	r.Get("/api/stream", s.sseHandler.ServeHTTP)

	return r
}

// loggingMiddleware logs HTTP requests using structured logging.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// handleRegistry returns the current Task State Registry snapshot as JSON.
func (s *Server) handleRegistry(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.registry.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("encode registry snapshot", slog.String("error", err.Error()))
	}
}

// Start starts the HTTP server in a non-blocking manner.
func (s *Server) Start() error {
	s.logger.Info("starting http server",
		slog.String("addr", s.httpServer.Addr),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sseHandler.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("sse shutdown", slog.String("error", err.Error()))
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Router returns the underlying chi router for route registration.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
