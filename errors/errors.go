// Package errors provides standardized error handling patterns for sensorstore
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping and classification across the
// storage, caching, and aggregation layers.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents client-caused errors (bad credentials, malformed
	// payloads). Never retried; surfaced immediately to the caller.
	ErrorInvalid ErrorClass = iota
	// ErrorStorage represents durable-store failures. Fatal to the operation
	// in progress; retry policy belongs to the caller, never to this core.
	ErrorStorage
	// ErrorCaching represents cache backend or (de)serialization failures.
	// Never fatal; the affected operation degrades to a direct store call.
	ErrorCaching
	// ErrorAggregation represents failures of the statistics upsert-increment.
	// Best-effort; never rolls back the associated measurement write.
	ErrorAggregation
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorStorage:
		return "storage"
	case ErrorCaching:
		return "caching"
	case ErrorAggregation:
		return "aggregation"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Invalid-request errors
	ErrSecretMismatch   = errors.New("sensor secret does not match")
	ErrMalformedPayload = errors.New("malformed measurement payload")
	ErrMissingSensor    = errors.New("measurement has no owning sensor")
	ErrInvalidQuery     = errors.New("invalid query expression")
	ErrInvalidID        = errors.New("invalid identifier")

	// Storage errors
	ErrNotFound           = errors.New("entity not found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Caching errors
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// ClassifiedError wraps an error with its classification and the context
// needed to log and to decide retry/backoff externally: the affected
// collection (or component) and the operation that failed.
type ClassifiedError struct {
	Class      ErrorClass
	Err        error
	Message    string
	Collection string
	Operation  string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsInvalid checks if an error is client-caused and must not be retried
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrSecretMismatch) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrMissingSensor) ||
		errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidID)
}

// IsStorage checks if an error is a durable-store failure
func IsStorage(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorStorage
	}

	return errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrNotFound)
}

// IsCaching checks if an error came from the cache layer. Caching errors are
// absorbed at their own layer and never surface as a failure of the primary
// operation they support.
func IsCaching(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorCaching
	}

	return errors.Is(err, ErrCacheUnavailable)
}

// IsAggregation checks if an error came from the statistics layer
func IsAggregation(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorAggregation
	}

	return false
}

// IsNotFound checks for the point-lookup miss condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	switch {
	case IsInvalid(err):
		return ErrorInvalid
	case IsCaching(err):
		return ErrorCaching
	case IsAggregation(err):
		return ErrorAggregation
	default:
		return ErrorStorage
	}
}

// newClassified creates a new classified error.
// This is an internal helper - use the Wrap* functions instead.
func newClassified(class ErrorClass, err error, collection, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:      class,
		Err:        err,
		Message:    message,
		Collection: collection,
		Operation:  operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "collection.operation: action failed: %w"
func Wrap(err error, collection, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", collection, operation, action, err)
}

// WrapInvalid wraps an error as an invalid request with context
func WrapInvalid(err error, collection, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, collection, operation, action)
	return newClassified(ErrorInvalid, wrappedErr, collection, operation, wrappedErr.Error())
}

// WrapStorage wraps an error as a storage failure with context
func WrapStorage(err error, collection, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, collection, operation, action)
	return newClassified(ErrorStorage, wrappedErr, collection, operation, wrappedErr.Error())
}

// WrapCaching wraps an error as a caching failure with context
func WrapCaching(err error, collection, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, collection, operation, action)
	return newClassified(ErrorCaching, wrappedErr, collection, operation, wrappedErr.Error())
}

// WrapAggregation wraps an error as an aggregation failure with context
func WrapAggregation(err error, collection, operation, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, collection, operation, action)
	return newClassified(ErrorAggregation, wrappedErr, collection, operation, wrappedErr.Error())
}

// New returns an error that formats as the given text. Provided so callers
// inside sensorstore do not need to import both this package and the
// standard library errors package.
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
