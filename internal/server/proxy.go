package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/logger"
	"github.com/jonathan/job-dashboard/internal/server/middleware"
)

// LoginRedirectHeader tells API callers where to send the user after a 401.
const LoginRedirectHeader = middleware.LoginRedirectHeader

// maxRequestBody caps request bodies accepted by proxy routes.
const maxRequestBody = 1 << 20

// apiKey returns the API key for a proxy call. ok is false when there is no
// key and local bypass is off, in which case a 401 has been written.
func (s *Server) apiKey(w http.ResponseWriter, r *http.Request) (key string, ok bool) {
	key = middleware.Token(r.Context())
	if key == "" && !s.cfg.BypassEnabled() {
		w.Header().Set(LoginRedirectHeader, middleware.LoginRedirect(middleware.OriginPath(r)))
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return key, true
}

// forward sends req to the backend and relays the result. A JSON body is
// relayed verbatim with the backend status; a 204 is relayed without a body.
// Transport failures and non-JSON bodies become 500 "Failed to <action>",
// except a 401, which stays a 401.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, req backend.Request, action string) {
	if resp, ok := s.call(w, r, req, action); ok {
		s.relay(w, r, resp, action)
	}
}

// call sends req with the session's API key. ok is false when a response
// has already been written.
func (s *Server) call(w http.ResponseWriter, r *http.Request, req backend.Request, action string) (*backend.Response, bool) {
	key, ok := s.apiKey(w, r)
	if !ok {
		return nil, false
	}
	req.APIKey = key

	resp, err := s.backend.Do(r.Context(), req)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("backend call failed",
			logger.FieldMethod, req.Method,
			logger.FieldPath, req.Path,
			logger.FieldError, err,
		)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to "+action)
		return nil, false
	}
	return resp, true
}

// relay writes a backend response to w.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, resp *backend.Response, action string) {
	if resp.StatusCode == http.StatusUnauthorized {
		w.Header().Set(LoginRedirectHeader, middleware.LoginRedirect(middleware.OriginPath(r)))
		if len(resp.Body) == 0 || !json.Valid(resp.Body) {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if len(resp.Body) == 0 || !json.Valid(resp.Body) {
		logger.FromContext(r.Context()).Warnw("backend returned a non-JSON body",
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, resp.StatusCode,
		)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to "+action)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// readJSONBody reads a request body that must be a JSON object.
func readJSONBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read body")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "must be a JSON object"}
	}
	return body, nil
}

// decodeValid reads a JSON object body, decodes it into dst and validates
// it. It returns the body as read so callers forward fields dst does not
// declare. An empty body decodes as {}.
func (s *Server) decodeValid(r *http.Request, dst any) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON"}
	}
	if err := s.validate.Struct(dst); err != nil {
		return nil, validationError(err)
	}
	return body, nil
}

// withDefault sets key to value in a JSON object body when key is absent.
func withDefault(body []byte, key string, value any) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, errors.Wrap(err, "decode body")
	}
	if _, ok := obj[key]; ok {
		return body, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "encode default")
	}
	obj[key] = raw
	return json.Marshal(obj)
}

// pathID returns a path value that must be a UUID.
func pathID(r *http.Request, name string) (string, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &ErrInvalidID{Name: name, Value: raw}
	}
	return id.String(), nil
}

// badRequest writes the error of a failed validation.
func (s *Server) badRequest(w http.ResponseWriter, err error) {
	var ve *ErrValidation
	var ie *ErrInvalidID
	switch {
	case errors.As(err, &ve):
		s.errorResponse(w, http.StatusBadRequest, strings.TrimPrefix(ve.Error(), "validation error: "))
	case errors.As(err, &ie):
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+ie.Name)
	default:
		s.errorResponse(w, HTTPStatus(err), "Invalid request body")
	}
}

// fetchJobs is the pager's fetch function. The API key travels in ctx.
func (s *Server) fetchJobs(ctx context.Context, query url.Values) (*backend.JobList, error) {
	return s.backend.ListJobs(ctx, middleware.Token(ctx), query)
}
