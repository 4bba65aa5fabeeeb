package server

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/filters"
	"github.com/jonathan/job-dashboard/internal/listing"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrInvalidID indicates a malformed path id
type ErrInvalidID struct {
	Name  string
	Value string
}

func (e *ErrInvalidID) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Name, e.Value)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var statusErr *backend.StatusError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.HasType(err, (*ErrValidation)(nil)), errors.HasType(err, (*ErrInvalidID)(nil)):
		return http.StatusBadRequest
	case errors.Is(err, filters.ErrUnknownField), errors.Is(err, filters.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, listing.ErrInFlight):
		return http.StatusConflict
	case errors.As(err, &statusErr):
		return statusErr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

// validationError converts validator errors into an *ErrValidation for the
// first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{Field: fe.Field(), Message: validationMessage(fe)}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min", "gte", "lte":
		return "is out of range"
	case "pipeline_status":
		return "is not a pipeline status"
	default:
		return "failed " + fe.Tag()
	}
}
