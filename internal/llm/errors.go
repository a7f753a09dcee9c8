package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("llm unauthorized")
	ErrUnavailable  = errors.New("llm unavailable")
	ErrRateLimited  = errors.New("llm rate limited")
)

// StreamError is a transport failure while requesting or reading a stream.
type StreamError struct {
	Provider string
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream: %v", e.Provider, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout rather than a refused
// or broken connection.
func (e *StreamError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// statusError maps a non-2xx response to an error.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case resp.StatusCode >= 500:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("%s error (status %d): %s", provider, resp.StatusCode, msg)
	}
	return fmt.Errorf("%w: %s status %d: %s", sentinel, provider, resp.StatusCode, msg)
}
