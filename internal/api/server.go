// Package api provides the RESTful HTTP API of spark-prompt.
//
// The server is stateless: the override store of a session travels in the
// request body as a map of user selections, and every response carries the
// selections back so clients can keep editing.
//
// ENDPOINT STRUCTURE:
// - /api/v1/templates: template CRUD and search
// - /api/v1/templates/{id}/render: interactive block tree
// - /api/v1/templates/{id}/prompt: resolved prompt text
// - /api/v1/templates/{id}/insert: token insertion at a cursor
// - /api/v1/templates/{id}/generate: image generation through the provider
// - /api/v1/banks, /api/v1/banks/search, /api/v1/categories: variable banks
// - /api/v1/assets: cached template covers and reference images
// - /api/v1/history: generation history
// - /api/v1/health: system health
// - /api/docs: interactive API documentation
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/service"
)

// APIServer serves the HTTP API over a service
type APIServer struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	logger       *zap.Logger
	addr         string
	server       *http.Server
	started      time.Time
}

// NewAPIServer creates a new API server instance
func NewAPIServer(svc *service.Service, addr string, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIServer{
		service:      svc,
		errorHandler: errors.NewHTTPErrorHandler(true, logger),
		logger:       logger,
		addr:         addr,
		started:      time.Now(),
	}
}

// Handler returns the routed handler with middleware applied
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/v1/templates", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/v1/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/v1/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/v1/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("PUT /api/v1/templates/{id}/cover", s.handleSetCover)
	mux.HandleFunc("POST /api/v1/templates/{id}/render", s.handleRender)
	mux.HandleFunc("POST /api/v1/templates/{id}/prompt", s.handlePrompt)
	mux.HandleFunc("POST /api/v1/templates/{id}/insert", s.handleInsert)
	mux.HandleFunc("POST /api/v1/templates/{id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/v1/templates/{id}/selections", s.handleListSelections)

	mux.HandleFunc("GET /api/v1/banks", s.handleListBanks)
	mux.HandleFunc("GET /api/v1/banks/search", s.handleSearchBanks)
	mux.HandleFunc("PUT /api/v1/banks/{key}", s.handleSaveBank)
	mux.HandleFunc("DELETE /api/v1/banks/{key}", s.handleDeleteBank)
	mux.HandleFunc("GET /api/v1/categories", s.handleCategories)
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.handleSaveCategory)
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("GET /api/v1/assets", s.handleAsset)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/v1/history/{id}", s.handleDeleteHistory)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	mux.HandleFunc("GET /api/docs", s.handleOpenAPI)
	mux.HandleFunc("GET /api/openapi.json", s.handleOpenAPISpec)

	return s.withMiddleware(mux)
}

// Start serves HTTP requests until ctx is cancelled, then shuts down gracefully
func (s *APIServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "could not listen").WithContext("addr", s.addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Start on an existing listener
func (s *APIServer) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation waits on the provider
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	stopWatch, err := s.service.WatchLibrary(ctx, func() {
		s.logger.Info("library reloaded")
	})
	if err != nil {
		s.logger.Warn("library watch disabled", zap.Error(err))
		stopWatch = func() {}
	}
	defer stopWatch()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", zap.String("addr", ln.Addr().String()))
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Stop(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Stop gracefully shuts down the server
func (s *APIServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// withMiddleware applies middleware to HTTP handlers
func (s *APIServer) withMiddleware(handler http.Handler) http.Handler {
	return s.loggingMiddleware(
		s.corsMiddleware(
			s.errorMiddleware(handler),
		),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func (s *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// corsMiddleware allows cross-origin requests from pages served on the
// loopback interface only. Other origins get no CORS headers, so browsers
// refuse to hand them the response.
func (s *APIServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && loopbackOrigin(origin)
		if origin != "" {
			w.Header().Add("Vary", "Origin")
		}
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			if origin != "" && !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loopbackOrigin reports whether an Origin header names localhost or a
// loopback address
func loopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// errorMiddleware recovers from handler panics
func (s *APIServer) errorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				s.writeError(w, errors.InternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// writeResponse writes a standardized JSON response
func (s *APIServer) writeResponse(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	response := APIResponse{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		return
	}
	_, _ = w.Write(jsonData)
}

// writeError writes an error response using the error handler
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

// decodeBody reads a JSON request body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
	if err != nil && !stderrors.Is(err, io.EOF) {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid JSON body")
	}
	return nil
}
