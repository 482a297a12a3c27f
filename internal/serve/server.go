// Package serve exposes the simulator over HTTP.
//
// Experiments are posted as JSON, TOML or YAML and answered with the same
// report the CLI renders as JSON. Every response body is JSON.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/paiml/sovereign-ai-stack-book/internal/experiment"
	"github.com/paiml/sovereign-ai-stack-book/internal/output"
)

// DefaultMaxSamples bounds the agent executions one request may ask for,
// counted as trials × tasks × the agents of every configuration.
const DefaultMaxSamples = 2_000_000

// DefaultAddr is the listen address used when none is given.
const DefaultAddr = "127.0.0.1:8080"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

const shutdownTimeout = 5 * time.Second

// Error codes carried in output.ErrorResponse.Code.
const (
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeTooLarge          = "TOO_LARGE"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeCanceled          = "CANCELED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// ErrTooLarge is returned for experiments above the sample limit.
var ErrTooLarge = errors.New("experiment exceeds sample limit")

// Server handles simulation requests.
type Server struct {
	runner         *experiment.Runner
	logger         *slog.Logger
	maxSamples     int
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMaxSamples sets the per-request sample limit. Non-positive values keep
// the default.
func WithMaxSamples(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSamples = n
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins. "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = append(s.allowedOrigins, origins...)
	}
}

// New creates a server.
func New(opts ...Option) *Server {
	s := &Server{maxSamples: DefaultMaxSamples}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.runner = experiment.NewRunner(s.logger)
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		s.registerSimulationRoutes(r)
	})

	if len(s.allowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, output.NewErrorWithCode(code, err.Error()))
}
