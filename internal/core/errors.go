// Package core provides the error taxonomy and shared request primitives for agrimitra.
package core

import (
	"fmt"
	"net/http"
)

// ErrorKind represents the class of failure surfaced to a client.
type ErrorKind string

const (
	// ErrorKindValidation indicates a malformed or missing request field (400)
	ErrorKindValidation ErrorKind = "validation_error"
	// ErrorKindUpstream indicates a remote collaborator failed in a way the handler cannot mask (502)
	ErrorKindUpstream ErrorKind = "upstream_error"
	// ErrorKindInternal indicates an unexpected local failure (500)
	ErrorKindInternal ErrorKind = "internal_error"
)

// AppError is the base error type returned across handler boundaries.
type AppError struct {
	Kind       ErrorKind `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *AppError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Kind {
	case ErrorKindValidation:
		return http.StatusBadRequest
	case ErrorKindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to the body shape the frontend expects.
func (e *AppError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": e.Message,
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, err error) *AppError {
	return &AppError{
		Kind:       ErrorKindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewUpstreamError creates a new upstream error (502)
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{
		Kind:       ErrorKindUpstream,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Kind:       ErrorKindInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
