// Package api exposes the reorder engine over HTTP.
//
// Routes:
//
//	POST /api/tables/{table}/move       body: moveBody
//	POST /api/tables/{table}/rebalance  body: rebalanceBody
//	GET  /api/tables/{table}/check      ?orderField=&scopeField=&scopeId=
//	GET  /api/tables/{table}/items      ?orderField=&scopeField=&scopeId=&limit=
//	GET  /health
//	GET  /metrics                       when a gatherer is configured
//
// Responses are canonical JSON. Engine errors map to statuses through
// reorder.HTTPStatus and are rendered as {"error": {"code", "message", ...}}.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/reorder/internal/ir"
	"github.com/roach88/reorder/internal/reorder"
)

// Server routes HTTP requests to an Engine.
type Server struct {
	engine   *reorder.Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	timeout  time.Duration
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithTimeout bounds every request's context. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New builds a Server and its routes.
func New(e *reorder.Engine, opts ...Option) *Server {
	s := &Server{
		engine: e,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.withTimeout, s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tables/{table}/move", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/tables/{table}/rebalance", s.handleRebalance).Methods(http.MethodPost)
	api.HandleFunc("/tables/{table}/check", s.handleCheck).Methods(http.MethodGet)
	api.HandleFunc("/tables/{table}/items", s.handleItems).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", "no such route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, errorBody("METHOD_NOT_ALLOWED", "method not allowed"))
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// with up to five seconds for in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	}
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	if s.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := ir.MarshalCanonical(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = ir.MarshalCanonical(errorBody(string(reorder.CodeStoreFailure), "encode response: "+err.Error()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError writes an engine error with its mapped status.
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, reorder.HTTPStatus(err), map[string]any{"error": reorder.ErrorPayload(err)})
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": code, "message": message}}
}
