package backend

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrUnauthorized is returned by typed calls when the backend rejects the API key.
var ErrUnauthorized = errors.New("backend rejected api key")

// Error represents a failure to reach the backend or read its response.
type Error struct {
	Method  string
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend error for %s %s: %s: %v", e.Method, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend error for %s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusError is returned by typed calls for a non-2xx backend response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Detail returns the backend's error message from a {"detail"} or {"error"}
// body, or "" when there is none.
func (e *StatusError) Detail() string {
	var body struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if d, ok := body.Detail.(string); ok && d != "" {
		return d
	}
	return body.Error
}

// Is makes errors.Is(err, ErrUnauthorized) match a 401 response.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is a backend 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUnreachable reports whether err came from the transport rather than a backend response.
func IsUnreachable(err error) bool {
	var be *Error
	return errors.As(err, &be)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
