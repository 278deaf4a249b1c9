package domain

import "errors"

var (
	// ErrExtractionNotFound is returned when an extraction cannot be found in the database
	ErrExtractionNotFound = errors.New("extraction not found")

	// ErrExtractionAlreadyClaimed is returned when attempting to claim an extraction that's already claimed
	ErrExtractionAlreadyClaimed = errors.New("extraction already claimed or not in PENDING status")

	// ErrInvalidMessage is returned when a queue message JSON is malformed
	ErrInvalidMessage = errors.New("invalid extraction message")

	// ErrMaxRetriesExceeded is returned when an extraction has exceeded its retry limit
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
