package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned by state stores for absent keys.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated is returned for operations that need a logged in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrScheduledInPast     = errors.New("scheduled time must be in the future")
	ErrRecurringNotAllowed = errors.New("recurring messages require a premium or business plan")
	ErrBulkNotAllowed      = errors.New("bulk messages require a premium or business plan")
	ErrMessageLimitReached = errors.New("monthly message limit reached")
	ErrEmptyMessage        = errors.New("title and content are required")
	ErrEmptyBulk           = errors.New("bulk request contains no messages")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidPlan         = errors.New("unknown subscription plan")
	ErrInvalidReport       = errors.New("unknown admin report")
	ErrAdminOnly           = errors.New("admin role required")
	ErrEmptyCheckout       = errors.New("no checkout session id")
)

// APIError is a non-2xx response from the backend.
// Generation identifies the credentials the request was sent with.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Generation uint64
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NetworkError is a request that could not complete.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError is a login or registration rejected by the backend.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return "authentication failed: " + e.Message
	}
	return "authentication failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// SessionExpiredError means a previously valid token was rejected and the session was closed.
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	return "session expired"
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

// Detail returns the server-supplied detail message carried by err, if any.
func Detail(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
