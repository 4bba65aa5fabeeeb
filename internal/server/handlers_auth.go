package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/job-dashboard/internal/logger"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
)

// ---------------------------------------------------------------------
// Auth handlers
// ---------------------------------------------------------------------

// VerifyKeyRequest is the login form body.
type VerifyKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// AuthCookieTTL is the lifetime of the auth_token cookie.
const AuthCookieTTL = 30 * 24 * 60 * 60

func (s *Server) setAuthCookie(w http.ResponseWriter, key string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   AuthCookieTTL,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// handleVerifyKey checks a submitted API key against the backend and, when
// accepted, stores it in the auth_token cookie.
func (s *Server) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	var req VerifyKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !s.cfg.BypassEnabled() {
		s.errorResponse(w, http.StatusBadRequest, "API key is required")
		return
	}

	if s.cfg.BypassEnabled() {
		key := req.APIKey
		if key == "" {
			key = "local-dev"
		}
		s.setAuthCookie(w, key)
		s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true, "bypass": true})
		return
	}

	if req.APIKey == "" {
		s.errorResponse(w, http.StatusBadRequest, "API key is required")
		return
	}

	valid, err := s.backend.VerifyKey(r.Context(), req.APIKey)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("key verification failed", logger.FieldError, err)
		s.errorResponse(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	if !valid {
		s.errorResponse(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	s.setAuthCookie(w, req.APIKey)
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// handleVerifySession reports whether the cookie key is still accepted.
func (s *Server) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	if s.cfg.BypassEnabled() {
		s.jsonResponse(w, http.StatusOK, map[string]bool{"valid": true, "bypass": true})
		return
	}

	key := middleware.Token(r.Context())
	if key == "" {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}

	valid, err := s.backend.VerifyKey(r.Context(), key)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("session verification failed", logger.FieldError, err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]bool{"valid": false})
		return
	}
	if !valid {
		s.jsonResponse(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleLogout clears the auth_token cookie.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	s.jsonResponse(w, http.StatusOK, map[string]bool{"success": true})
}
