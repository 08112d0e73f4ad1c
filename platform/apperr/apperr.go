// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors; the resilience layer uses the
// kind to decide between retry, fallback, and escalation, and the HTTP layer
// maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid caller input. Never retried.
	KindValidation
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindTransientNetwork indicates a network-level failure reaching an
	// external collaborator. Retryable.
	KindTransientNetwork
	// KindUpstreamService indicates an external collaborator accepted the
	// call but failed to serve it. Retryable.
	KindUpstreamService
	// KindPolicyViolation indicates detected non-compliant content or
	// behavior. Never retried; always routed to compliance escalation.
	KindPolicyViolation
	// KindAssessment indicates a scoring/assessment stage failed internally.
	// Never retried; handled by the local fallback tiers.
	KindAssessment
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTransientNetwork, KindUpstreamService:
		return http.StatusBadGateway
	case KindPolicyViolation:
		return http.StatusUnprocessableEntity
	case KindAssessment, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// TransientNetwork creates a retryable network failure error.
func TransientNetwork(message string, err error) *Error {
	return Wrap(KindTransientNetwork, message, err)
}

// UpstreamService creates a retryable upstream failure error.
func UpstreamService(message string, err error) *Error {
	return Wrap(KindUpstreamService, message, err)
}

// PolicyViolation creates a compliance violation error.
func PolicyViolation(message string) *Error {
	return New(KindPolicyViolation, message)
}

// Assessment creates an assessment failure error.
func Assessment(message string, err error) *Error {
	return Wrap(KindAssessment, message, err)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is present.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Retryable reports whether the error belongs to the closed set of
// retryable kinds. Anything else propagates without retry.
func Retryable(err error) bool {
	switch GetKind(err) {
	case KindTransientNetwork, KindUpstreamService:
		return true
	default:
		return false
	}
}
