// Package errors defines the client facing error taxonomy. Every failure an
// API caller can observe is an AppError with a stable code and HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the client facing shape of a failure. Internal carries the
// server side cause and RetryAfter hints when a retry may succeed; neither is
// serialised into the body.
type AppError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	StatusCode int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
	Internal   error         `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap exposes the internal cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches by code, so copies made by the With helpers still equal their sentinel.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if e == nil || !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

func (e *AppError) clone() *AppError {
	cpy := *e
	return &cpy
}

// WithInternal returns a copy carrying err as the server side cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := e.clone()
	cpy.Internal = err
	return cpy
}

// WithMessage returns a copy with a more specific client message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cpy := e.clone()
	cpy.Message = message
	return cpy
}

// WithRetryAfter returns a copy advertising when the client may retry.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	if e == nil {
		return nil
	}
	cpy := e.clone()
	cpy.RetryAfter = d
	return cpy
}

// New builds an application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

var (
	ErrUnauthorized = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	// ErrInvalidCredentials covers unknown emails, inactive accounts and wrong passwords alike.
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	ErrEmailNotVerified   = New("EMAIL_NOT_VERIFIED", "Please verify your email address before signing in", http.StatusForbidden)
	// ErrInvitationInvalid covers unknown, expired and already accepted invitations.
	ErrInvitationInvalid = New("INVITATION_INVALID", "Invalid or expired invitation", http.StatusBadRequest)
	ErrAlreadyExists     = New("ALREADY_EXISTS", "The business name or email is already in use", http.StatusConflict)
	ErrForbidden         = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound          = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrBadRequest        = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrRequestTimeout    = New("REQUEST_TIMEOUT", "The request took too long to complete", http.StatusGatewayTimeout)
	ErrInternalServer    = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrRateLimit         = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)

	// ErrConnectivity is returned when the database server cannot be reached.
	ErrConnectivity = &AppError{
		Code:       "DATABASE_UNAVAILABLE",
		Message:    "Service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
		RetryAfter: 5 * time.Second,
	}
)

// FromError returns the AppError in err's chain, or ErrInternalServer wrapping err.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest is ErrBadRequest with a caller supplied message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}
