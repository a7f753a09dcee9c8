package notion

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/buger/jsonparser"
)

var (
	ErrNotFound     = errors.New("notion object not found")
	ErrUnauthorized = errors.New("notion unauthorized")
	ErrRateLimited  = errors.New("notion rate limited")
	ErrValidation   = errors.New("notion rejected request")
)

// APIError is an error response from the API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error (status %d, %s): %s", e.Status, e.Code, e.Message)
}

// Is classifies the error against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == "object_not_found"
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests || e.Code == "rate_limited"
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// parseAPIError decodes {"object":"error","status":400,"code":"...","message":"..."}.
func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	e.Code, _ = jsonparser.GetString(body, "code")
	e.Message, _ = jsonparser.GetString(body, "message")
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
