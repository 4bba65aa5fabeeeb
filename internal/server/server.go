// Package server provides the dashboard HTTP server: page shells, the JSON
// proxy routes in front of the backend, and the per-session list state.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/config"
	"github.com/jonathan/job-dashboard/internal/logger"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
	"github.com/jonathan/job-dashboard/internal/server/ratelimit"
)

// RequestIDHeader carries the per-request id on responses.
const RequestIDHeader = "X-Request-ID"

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	cfg         *config.Config
	backend     *backend.Client
	rateLimiter *ratelimit.Limiter
	sessions    *SessionStore
	validate    *validator.Validate
	pages       *renderer
	log         *zap.SugaredLogger
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	client := backend.NewClient(backend.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.BackendRetryMax,
	})

	pages, err := newRenderer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	s := &Server{
		cfg:         cfg,
		backend:     client,
		rateLimiter: ratelimit.NewLimiter(ratelimit.FromConfig(cfg.RateLimit)),
		validate:    newValidator(),
		pages:       pages,
		log:         logger.ComponentLogger("server"),
	}

	s.sessions, err = NewSessionStore(SessionOptions{
		Secret:    cfg.SessionSecret,
		CacheSize: cfg.PagerCacheSize,
		PageSize:  cfg.PageSize,
		Secure:    cfg.IsProduction(),
	}, s.fetchJobs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session store")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	gate := middleware.Session(middleware.SessionOptions{Bypass: s.cfg.BypassEnabled()})
	return s.withSecurityHeaders(s.withRateLimit(s.withLogging(gate(s.routes()))))
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /static/", staticHandler())

	// Auth
	mux.HandleFunc("GET /api/auth/verify", s.handleVerifySession)
	mux.HandleFunc("POST /api/auth/verify", s.handleVerifyKey)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	// Job proxy endpoints
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	mux.HandleFunc("POST /api/jobs/ingest", s.handleIngestJob)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("PATCH /api/jobs/{id}", s.handleUpdateJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleDeleteJob)
	mux.HandleFunc("PATCH /api/jobs/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("POST /api/jobs/{id}/analyze", s.handleAnalyzeJob)
	mux.HandleFunc("POST /api/jobs/{id}/cover-letter", s.handleGenerateCoverLetter)
	mux.HandleFunc("POST /api/jobs/{id}/notes", s.handleAddNote)

	// Contacts
	mux.HandleFunc("GET /api/jobs/{id}/contacts", s.handleListContacts)
	mux.HandleFunc("DELETE /api/jobs/{id}/contacts/{contactId}", s.handleDeleteContact)

	// Decline reasons
	mux.HandleFunc("GET /api/decline-reasons", s.handleDeclineReasons)

	// Pages
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /dashboard/jobs/more", s.handleLoadMore)
	mux.HandleFunc("POST /dashboard/jobs/refresh", s.handleRefresh)
	mux.HandleFunc("POST /dashboard/filters", s.handleUpdateFilter)
	mux.HandleFunc("POST /dashboard/filters/clear", s.handleClearFilters)
	mux.HandleFunc("POST /dashboard/filters/status", s.handleToggleStatus)
	mux.HandleFunc("POST /dashboard/sort", s.handleSort)
	mux.HandleFunc("GET /dashboard/search", s.handleSearchPage)
	mux.HandleFunc("GET /dashboard/jobs/new", s.handleNewJobPage)
	mux.HandleFunc("POST /dashboard/jobs/new", s.handleNewJobSubmit)
	mux.HandleFunc("GET /dashboard/jobs/{id}", s.handleJobPage)
	mux.HandleFunc("POST /dashboard/jobs/{id}/status", s.handleJobStatus)
	mux.HandleFunc("POST /dashboard/jobs/{id}/flags", s.handleJobFlag)
	mux.HandleFunc("POST /dashboard/jobs/{id}/decline", s.handleJobDecline)
	mux.HandleFunc("POST /dashboard/jobs/{id}/delete", s.handleJobDelete)
	mux.HandleFunc("GET /dashboard/settings", s.handleSettingsPage)
	return mux
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("server starting", logger.FieldAddress, s.httpServer.Addr, logger.FieldBackend, s.cfg.BackendURL)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return errors.Wrap(err, "server error")
	case <-stop:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}

	// Stop rate limiter cleanup goroutine
	s.rateLimiter.Stop()

	s.log.Info("server stopped")
	return nil
}

// withSecurityHeaders sets the standard hardening headers on every response.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging assigns a request id and logs each request on completion.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(rec, r.WithContext(ctx))

		if r.URL.Path == "/health" || isStatic(r.URL.Path) {
			return
		}
		logger.FromContext(ctx).Infow("request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
			logger.FieldClient, s.extractClientID(r),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorw("failed to encode JSON response", logger.FieldError, err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier (IP address) from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.log.Warnw("rate limit exceeded",
		logger.FieldClient, clientID,
		"limit", info.Limit,
		"reset_at", info.ResetTime.Format(time.RFC3339),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
