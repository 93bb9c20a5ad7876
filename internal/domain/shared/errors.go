package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by the typed errors below
const (
	CodeTransport  = "TRANSPORT"
	CodeHTTP       = "HTTP"
	CodeValidation = "VALIDATION"
	CodeConflict   = "CONFLICT"
)

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized  = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrNotAcked      = NewDomainError("NOT_ACKNOWLEDGED", "Server did not acknowledge the write")
	ErrNothingToSave = NewDomainError("NOTHING_TO_SAVE", "Edit buffer has no modifications")
)

// NetworkError is implemented by failures of a remote call: either the request
// never reached the server (TransportError) or the server answered with a
// failure (HTTPError).
type NetworkError interface {
	error
	// StatusCode is 0 for transport failures.
	StatusCode() int
	// UserMessage is the message shown to the operator.
	UserMessage() string
}

// TransportError means no response was received from the server.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Code returns the error code
func (e *TransportError) Code() string { return CodeTransport }

// StatusCode implements NetworkError
func (e *TransportError) StatusCode() int { return 0 }

// UserMessage implements NetworkError
func (e *TransportError) UserMessage() string {
	return "server unreachable: " + e.Err.Error()
}

// HTTPError means the server responded with a failure.
type HTTPError struct {
	Status  int
	Message string
	// Err optionally carries a more specific cause, e.g. ErrNotAcked.
	Err error
}

// NewHTTPError builds an HTTPError, falling back to the status text when the
// server supplied no message.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// Code returns the error code
func (e *HTTPError) Code() string { return CodeHTTP }

// StatusCode implements NetworkError
func (e *HTTPError) StatusCode() int { return e.Status }

// UserMessage implements NetworkError
func (e *HTTPError) UserMessage() string { return e.Message }

// ValidationError is a client-side precondition failure detected before any
// network call.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a new validation error
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Code returns the error code
func (e *ValidationError) Code() string { return CodeValidation }

// ConflictError reports an operation attempted from a phase that does not
// allow it. It is a caller contract violation, not a runtime condition.
type ConflictError struct {
	Op    string
	Phase string
	Err   error
}

// NewConflictError creates a new conflict error
func NewConflictError(op, phase string) *ConflictError {
	return &ConflictError{Op: op, Phase: phase, Err: ErrInvalidState}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.Phase)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Code returns the error code
func (e *ConflictError) Code() string { return CodeConflict }

// IsNetwork reports whether err is a transport or HTTP failure.
func IsNetwork(err error) bool {
	var ne NetworkError
	return errors.As(err, &ne)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a phase conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// ErrorCode extracts the code of any error defined in this package.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
