// Package api implements the lansweep HTTP control surface: scan
// lifecycle endpoints, progress polling, result retrieval, and the
// embedded status UI.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ostrand/lansweep/internal/config"
	"github.com/ostrand/lansweep/internal/errors"
	"github.com/ostrand/lansweep/internal/logging"
	"github.com/ostrand/lansweep/internal/metrics"
	"github.com/ostrand/lansweep/internal/scan"
)

const (
	serverShutdownTimeout = 10 * time.Second
	maxRequestBody        = 1 << 20 // 1 MB
)

// Server is the lansweep HTTP API server. It owns a single scan
// orchestrator; one scan runs at a time.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	config     *config.Config
	engine     *scan.Orchestrator
	logger     *logging.Logger
	metrics    *metrics.Metrics
	validate   *validator.Validate
	version    string
	startTime  time.Time
}

// New creates a new API server instance.
func New(cfg *config.Config, engine *scan.Orchestrator, m *metrics.Metrics, version string) *Server {
	// InfoAPI/ErrorAPI attach the component field per call.
	logger := logging.Default()

	server := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		engine:    engine,
		logger:    logger,
		metrics:   m,
		validate:  validator.New(),
		version:   version,
		startTime: time.Now(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:           net.JoinHostPort(cfg.API.ListenAddr, strconv.Itoa(cfg.API.Port)),
		Handler:        server.router,
		ReadTimeout:    cfg.API.RequestTimeout,
		WriteTimeout:   cfg.API.RequestTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return server
}

// Start runs the API server until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.InfoAPI("Starting API server", "address", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.InfoAPI("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.ErrorAPI("API server shutdown error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetAddress returns the listen address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/scan", s.startScanHandler).Methods("POST")
	api.HandleFunc("/status", s.statusHandler).Methods("GET")
	api.HandleFunc("/results", s.resultsHandler).Methods("GET")
	api.HandleFunc("/cancel", s.cancelHandler).Methods("POST")
	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	api.HandleFunc("/version", s.versionHandler).Methods("GET")

	if s.config.API.EnableMetrics && s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	if dir := s.config.API.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(dir)))
		}
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	))
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// writeError writes a standardized error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	s.logger.ErrorAPI("API error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"remote_addr", r.RemoteAddr)

	response := ErrorResponse{
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		response.Code = string(code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		s.logger.ErrorAPI("Failed to encode error response", encodeErr)
	}
}

// WriteJSON writes a JSON response.
func (s *Server) WriteJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.ErrorAPI("Failed to encode JSON response", err,
			"path", r.URL.Path,
			"method", r.Method)
	}
}

// Middleware functions.

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.ErrorAPI("Panic in API handler", fmt.Errorf("%v", err),
					"path", r.URL.Path,
					"method", r.Method)
				s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		s.logger.InfoAPI("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", duration,
			"remote_addr", r.RemoteAddr)

		if s.metrics != nil {
			s.metrics.RequestObserved(r.Method, strconv.Itoa(wrapped.statusCode), duration)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
