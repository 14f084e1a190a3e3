// Package server exposes the dispatch layer over HTTP: a single batch-run
// endpoint plus operation discovery and health probes. The host that embeds
// the node normally drives dispatch directly; this surface exists for
// standalone deployments and manual testing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/supabridge/supabridge/internal/batch"
	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/server/middleware"
	"github.com/supabridge/supabridge/internal/supabase"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host              string
	Port              int
	ShutdownTimeout   time.Duration
	CORSOrigins       []string
	RequestsPerMinute int
	MaxBodySize       int64 // bytes
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		ShutdownTimeout:   30 * time.Second,
		CORSOrigins:       []string{"*"},
		RequestsPerMinute: 120,
		MaxBodySize:       25 * 1024 * 1024,
	}
}

// Server is the HTTP front end for batch execution.
type Server struct {
	cfg        Config
	client     *supabase.Client
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New wires routes and middleware; call ListenAndServe to start.
func New(cfg Config, client *supabase.Client, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, client: client, logger: logger}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if s.cfg.RequestsPerMinute > 0 {
		r.Use(middleware.RateLimit(s.cfg.RequestsPerMinute))
	}

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Get("/operations", s.handleOperations)
	})

	s.router = r
}

// Router returns the configured router, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// runRequest is the batch-run request envelope.
type runRequest struct {
	Items           []model.OperationRequest `json:"items"`
	ContinueOnFail  bool                     `json:"continueOnFail"`
	StrictOperators bool                     `json:"strictOperators"`
}

// runResponse wraps the result stream with basic metadata.
type runResponse struct {
	Results []model.ResultItem `json:"results"`
	Meta    runMeta            `json:"meta"`
}

type runMeta struct {
	Count  int     `json:"count"`
	TookMs float64 `json:"took_ms"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)
	defer body.Close()

	var req runRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "No items provided")
		return
	}
	// Validate every (resource, operation) pair up front so a malformed
	// batch fails before any backend call.
	for i, item := range req.Items {
		if _, err := model.ParseResource(string(item.Resource)); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Item %d: %v", i, err))
			return
		}
		if _, err := model.ParseOperation(item.Resource, string(item.Operation)); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Item %d: %v", i, err))
			return
		}
	}

	results, err := batch.Run(r.Context(), s.client, req.Items, batch.Options{
		ContinueOnFail:  req.ContinueOnFail,
		StrictOperators: req.StrictOperators,
	})
	if err != nil {
		writeError(w, classifyError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		Results: results,
		Meta: runMeta{
			Count:  len(results),
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	})
}

// operationsResponse lists the valid operations per resource, for host UIs
// populating dropdowns.
type operationsResponse struct {
	Database []model.Operation `json:"database"`
	Storage  []model.Operation `json:"storage"`
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, operationsResponse{
		Database: model.DatabaseOperations,
		Storage:  model.StorageOperations,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready when the backend row API answers with the
// configured credentials.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe starts the server and blocks until SIGINT/SIGTERM, then
// shuts down gracefully within the configured timeout.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// --- response helpers ---

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// classifyError maps a batch error onto an HTTP status.
func classifyError(err error) int {
	switch {
	case model.IsValidationError(err):
		return http.StatusBadRequest
	case supabase.IsNotFound(err):
		return http.StatusNotFound
	case supabase.IsAuthError(err):
		return http.StatusUnauthorized
	case supabase.IsNetworkError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
