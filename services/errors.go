package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeUpstream     ErrorType = "upstream"
	ErrorTypeInternal     ErrorType = "internal"
)

// DomainError represents a structured error with a stable wire code.
// Every auth/ledger/upstream failure is one of these, so call sites handle
// each variant explicitly instead of catching thrown exceptions.
type DomainError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is; two domain errors match on type and code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, code, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Domain error variables

var (
	// Authentication errors (401)
	ErrMissingCredential = NewDomainError(ErrorTypeUnauthorized, "missing_credential", "missing or malformed bearer credential", nil)
	ErrInvalidCredential = NewDomainError(ErrorTypeUnauthorized, "invalid_credential", "credential does not match any account", nil)

	// Admission errors (403)
	ErrAccountSuspended    = NewDomainError(ErrorTypeForbidden, "account_suspended", "account is suspended", nil)
	ErrInsufficientCredits = NewDomainError(ErrorTypeForbidden, "insufficient_credits", "account has insufficient credits", nil)

	// Availability errors (503)
	ErrServiceDraining  = NewDomainError(ErrorTypeUnavailable, "service_draining", "service is shutting down and not accepting new work", nil)
	ErrStoreUnavailable = NewDomainError(ErrorTypeUnavailable, "store_unavailable", "credential store is unavailable", nil)

	// Not found errors
	ErrAccountNotFound = NewDomainError(ErrorTypeNotFound, "account_not_found", "account not found", nil)

	// Upstream generation errors (408/503)
	ErrUpstreamTimeout     = NewDomainError(ErrorTypeUpstream, "generation_timeout", "generation service timed out", nil)
	ErrUpstreamUnavailable = NewDomainError(ErrorTypeUpstream, "generation_unavailable", "generation service is unavailable", nil)
	ErrUpstreamRejected    = NewDomainError(ErrorTypeUpstream, "generation_rejected", "generation service rejected the request", nil)

	// Validation errors (400)
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid_request", "invalid request body", nil)

	// Internal errors (500)
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal_error", "internal server error", nil)
)

// Error type checking helper functions

// IsUnauthorizedError checks if an error is an authentication error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsForbiddenError checks if an error is an admission (403) error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnavailableError checks if an error is an availability error
func IsUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUnavailable)
}

// IsUpstreamError checks if an error came from the generation collaborator
func IsUpstreamError(err error) bool {
	return hasType(err, ErrorTypeUpstream)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the stable wire code of a domain error, or empty string
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// WrapError attaches an underlying cause to a sentinel domain error while
// keeping its type and code
func WrapError(sentinel *DomainError, err error) *DomainError {
	return NewDomainError(sentinel.Type, sentinel.Code, sentinel.Message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) *DomainError {
	return NewDomainError(ErrorTypeInternal, ErrInternal.Code, message, err)
}
