package helpers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dashboard-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks.
type ConfigurationError struct{ DashboardError }
type DatabaseError struct{ DashboardError }
type ValidationError struct{ DashboardError }

// NetworkError covers rejected, timed out and non-2xx requests.
type NetworkError struct {
	DashboardError
	Endpoint   string
	StatusCode int
}

// ExhaustedFallbackError means no tier produced fresh data and the static
// reference dataset was served instead.
type ExhaustedFallbackError struct {
	DashboardError
	Primary  error
	Fallback error
}

// -----------------------------------------------------------------------------

func NewNetworkError(endpoint string, status int, cause error) *NetworkError {
	msg := fmt.Sprintf("request to %s failed", endpoint)
	if status > 0 {
		msg = fmt.Sprintf("request to %s failed with status %d", endpoint, status)
	}
	return &NetworkError{
		DashboardError: DashboardError{Message: msg, Cause: cause},
		Endpoint:       endpoint,
		StatusCode:     status,
	}
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{DashboardError{Message: fmt.Sprintf(format, args...)}}
}

func NewDatabaseError(op string, cause error) *DatabaseError {
	return &DatabaseError{DashboardError{Message: fmt.Sprintf("%s failed", op), Cause: cause}}
}

func NewExhaustedFallbackError(primary, fallback error) *ExhaustedFallbackError {
	return &ExhaustedFallbackError{
		DashboardError: DashboardError{Message: "all analytics tiers failed, serving reference dataset", Cause: primary},
		Primary:        primary,
		Fallback:       fallback,
	}
}

// IsNetworkError reports whether err (or anything it wraps) is a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to attempts times with exponential backoff,
// stopping early when ctx is done.
func RetryWithBackoff[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs errors with context and keeps a rolling failure count.
type ErrorHandler struct {
	Logger *logger.Logger

	mu         sync.Mutex
	errorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.mu.Lock()
	e.errorCount = 0
	e.mu.Unlock()
}

func (e *ErrorHandler) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errorCount
}

// -----------------------------------------------------------------------------

// Handle logs err under the given context label and counts it.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()

	var ne *NetworkError
	var de *DatabaseError
	switch {
	case errors.As(err, &ne):
		e.Logger.Warning("Network failure in %s (%s): %v", context, ne.Endpoint, err)
	case errors.As(err, &de):
		e.Logger.Error("Database failure in %s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
