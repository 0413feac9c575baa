// Package errors defines the error shape returned by the inventory API and
// the constructors services use to pick a status code.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes sent to clients
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodePersistenceFailed  = "PERSISTENCE_FAILED"
)

// AppError carries a client-facing code and message plus the HTTP status.
// Err is logged but never sent.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds one entry to Details
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// Wrap records the cause
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields reports field -> problem pairs
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	e := ErrValidation(message)
	e.Details = fields
	return e
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", http.StatusNotFound)
}

func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrInternal hides the cause behind a generic message when message is empty
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrServiceUnavailable names the dependency that is down
func ErrServiceUnavailable(dependency string) *AppError {
	return NewAppError(CodeServiceUnavailable, dependency+" is temporarily unavailable", http.StatusServiceUnavailable)
}

func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, operation+" timed out", http.StatusGatewayTimeout)
}

// ErrPersistence reports a write that was rolled back. Nothing the failed
// operation computed was saved.
func ErrPersistence(message string) *AppError {
	if message == "" {
		message = "changes could not be saved"
	}
	return NewAppError(CodePersistenceFailed, message, http.StatusServiceUnavailable)
}

// AsAppError finds an AppError anywhere in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// MapDomainError picks a response for an error that did not come with one.
// Context expiry is checked first; the remaining cases go by the wording the
// domain package uses for its sentinel errors.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout("request").Wrap(err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case strings.Contains(msg, "already exists"):
		return ErrConflict(err.Error()).Wrap(err)
	case strings.HasPrefix(msg, "invalid"), strings.Contains(msg, "is required"):
		return ErrValidation(err.Error()).Wrap(err)
	}
	return ErrInternal("").Wrap(err)
}
