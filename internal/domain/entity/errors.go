package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference means the video locator could not be parsed. No
	// collaborator is called when it is returned.
	ErrInvalidReference = errors.New("invalid video reference")

	// ErrExtractionFailed wraps a decoder failure to open the video or to
	// report its duration.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrCanceled means the caller's context ended before the timestamp
	// loop finished.
	ErrCanceled = errors.New("extraction canceled")
)

// ExtractionFailed wraps a decoder error so that errors.Is matches both
// ErrExtractionFailed and the cause.
func ExtractionFailed(cause error) error {
	return fmt.Errorf("%w: %w", ErrExtractionFailed, cause)
}

// Canceled wraps a context error.
func Canceled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}

// ErrInvalidStrategy means the sampling configuration names no known
// strategy or carries an unusable rate.
var ErrInvalidStrategy = errors.New("invalid sampling strategy")

// ErrJobNotFound is returned by job repositories for unknown IDs.
var ErrJobNotFound = errors.New("job not found")

// RetryableError is a job failure that should be requeued. Attempt is the
// attempt that just failed, as persisted on the job.
type RetryableError struct {
	Attempt     int
	MaxAttempts int
	Err         error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable failure (attempt %d/%d): %v", e.Attempt, e.MaxAttempts, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// RetryAttempt lets transports size their backoff without importing entity.
func (e *RetryableError) RetryAttempt() int { return e.Attempt }
