package common

import (
	"errors"
	"fmt"
)

// Domain errors - use errors.Is() to check
var (
	// Generic errors
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// Queue errors
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")

	// Pipeline errors
	ErrBadSource     = errors.New("unusable source")
	ErrMediaTooLarge = errors.New("media too large")
	ErrUpstream      = errors.New("upstream error")

	ErrJobNotFound = fmt.Errorf("job %w", ErrNotFound)

	// Validation errors
	ErrValidation = errors.New("validation error")
)

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Is implements errors.Is for ValidationError
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SourceError describes why a Drive file cannot be transcribed.
type SourceError struct {
	Message string
}

func (e SourceError) Error() string {
	return e.Message
}

func (e SourceError) Is(target error) bool {
	return target == ErrBadSource
}

// UpstreamError is a failure of an external dependency (Drive, OpenAI).
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

func WrapUpstream(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsBadSource(err error) bool {
	return errors.Is(err, ErrBadSource)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable reports whether the job queue refused work.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed)
}
