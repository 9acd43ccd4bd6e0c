package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories the analysis pipeline can
// surface. Callers never see transport or provider specific error types, only
// a DomainError carrying one of these kinds.
type ErrorKind string

const (
	ErrKindAPIKeyNotSet       ErrorKind = "api_key_not_set"
	ErrKindInsufficientData   ErrorKind = "insufficient_data"
	ErrKindRateLimitExceeded  ErrorKind = "rate_limit_exceeded"
	ErrKindInvalidCredentials ErrorKind = "invalid_credentials"
	ErrKindResponseParse      ErrorKind = "response_parse_error"
	ErrKindNetwork            ErrorKind = "network_error"
	ErrKindRequest            ErrorKind = "request_error"
	ErrKindUnknown            ErrorKind = "unknown_error"
)

// DomainError is the only error type that crosses the adapter boundary.
// Message is user-facing and must never contain secrets or raw payloads.
type DomainError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewDomainError creates a DomainError with the given kind and message.
func NewDomainError(kind ErrorKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// WrapDomainError keeps the original error available via errors.Unwrap while
// presenting only the domain message to callers.
func WrapDomainError(kind ErrorKind, message string, cause error) *DomainError {
	return &DomainError{Kind: kind, Message: message, cause: cause}
}

// AsDomainError extracts a DomainError from an error chain.
func AsDomainError(err error) (*DomainError, bool) {
	var derr *DomainError
	if errors.As(err, &derr) {
		return derr, true
	}
	return nil, false
}

// KindOf returns the error kind of err, or ErrKindUnknown when err is not a
// DomainError.
func KindOf(err error) ErrorKind {
	if derr, ok := AsDomainError(err); ok {
		return derr.Kind
	}
	return ErrKindUnknown
}
