package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse means the API answered 2xx without a usable text field.
var ErrMalformedResponse = errors.New("malformed transcription response")

// HTTPError is a non-2xx answer from the transcription endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether another attempt may succeed. Transport errors and
// 429/500/502/503/504 are retried; context errors and everything else are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var permanent *requestError
	if errors.As(err, &permanent) {
		return false
	}
	return true
}

// requestError is a failure building the request; no retry can fix it.
type requestError struct {
	Err error
}

func (e *requestError) Error() string { return e.Err.Error() }
func (e *requestError) Unwrap() error { return e.Err }

func newRequestError(format string, args ...any) error {
	return &requestError{Err: fmt.Errorf(format, args...)}
}

// classify turns the final upload error into a Failure.
func classify(err error, attempts int) *Failure {
	f := &Failure{Attempts: attempts, Err: err}

	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		f.Kind = FailureAPI
		f.Status = httpErr.StatusCode
		f.Body = httpErr.Body
	case errors.Is(err, ErrMalformedResponse):
		f.Kind = FailureMalformed
	case errors.Is(err, context.DeadlineExceeded):
		f.Kind = FailureTimeout
	case errors.Is(err, context.Canceled):
		f.Kind = FailureCanceled
	default:
		f.Kind = FailureTransport
	}
	return f
}
