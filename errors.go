package chatcore

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrUnknownBackend indicates no backend is registered under the requested name.
	ErrUnknownBackend = errors.New("chatcore: unknown backend")

	// ErrInvalidModel indicates the requested model is not served by the backend.
	ErrInvalidModel = errors.New("chatcore: invalid or unsupported model")

	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("chatcore: invalid API key")

	// ErrRateLimited indicates the backend's rate limit has been exceeded.
	ErrRateLimited = errors.New("chatcore: rate limit exceeded")

	// ErrInvalidRequest indicates the job or its parameters are invalid.
	ErrInvalidRequest = errors.New("chatcore: invalid request")

	// ErrBackendUnavailable indicates the backend service is down or unreachable.
	ErrBackendUnavailable = errors.New("chatcore: backend unavailable")

	// ErrStreamClosed is returned when a token stream is read after Close.
	ErrStreamClosed = errors.New("chatcore: stream closed")
)

// ValidationError represents an error in job parameter validation.
type ValidationError struct {
	Field  string // The parameter field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BackendError represents an error raised by a generation backend.
type BackendError struct {
	Backend    BackendID // The backend that failed
	StatusCode int       // HTTP status code (if applicable)
	Message    string    // Error message from the backend
	Retryable  bool      // Whether this error is potentially retryable
	Err        error     // Wrapped sentinel error (ErrRateLimited, ErrBackendUnavailable, etc.)
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend '%s' error (status %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend '%s' error: %s", e.Backend, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError classifies an HTTP status into a BackendError with the
// matching sentinel and retry flag.
func NewBackendError(backend BackendID, status int, message string) *BackendError {
	e := &BackendError{
		Backend:    backend,
		StatusCode: status,
		Message:    message,
	}

	switch {
	case status == 401 || status == 403:
		e.Err = ErrInvalidAPIKey
	case status == 429:
		e.Err = ErrRateLimited
		e.Retryable = true
	case status == 400 || status == 404 || status == 422:
		e.Err = ErrInvalidRequest
	case status >= 500:
		e.Err = ErrBackendUnavailable
		e.Retryable = true
	}

	return e
}

// IsRetryable checks if an error is potentially retryable.
// Returns true for rate limits and temporary unavailability.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Retryable
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrBackendUnavailable)
}

// IsInvalidRequest checks if an error indicates an invalid job.
// These errors are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidModel) || errors.Is(err, ErrUnknownBackend) {
		return true
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidAPIKey) {
		return true
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		// HTTP 401/403 indicate auth issues
		return backendErr.StatusCode == 401 || backendErr.StatusCode == 403
	}

	return false
}
