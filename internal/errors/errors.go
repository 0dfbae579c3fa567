// Package errors provides the typed errors raised at the completion boundary.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases
var (
	ErrAuthFailed      = errors.New("authentication failed")
	ErrMissingAPIKey   = errors.New("no API key configured (set GENAI_API_KEY)")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoContent       = errors.New("no content in response")
)

// AuthError represents a rejected or missing credential
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: check your API key"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *AuthError) Is(target error) bool {
	if target == ErrAuthFailed {
		return true
	}
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError
func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// APIError represents an API request failure
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// TimeoutError represents a request timeout
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// UsageLimitError represents an exhausted quota or rate limit
type UsageLimitError struct {
	Message string
}

func (e *UsageLimitError) Error() string {
	if e.Message == "" {
		return "quota exceeded"
	}
	return fmt.Sprintf("quota exceeded: %s", e.Message)
}

// NewUsageLimitError creates a new UsageLimitError
func NewUsageLimitError(message string) *UsageLimitError {
	return &UsageLimitError{Message: message}
}

// ModelError represents an unknown or unavailable model
type ModelError struct {
	Model   string
	Message string
}

func (e *ModelError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("model error (%s): %s", e.Model, e.Message)
	}
	return fmt.Sprintf("model error: %s", e.Message)
}

// NewModelError creates a new ModelError
func NewModelError(model, message string) *ModelError {
	return &ModelError{Model: model, Message: message}
}

// BlockedError represents a prompt or reply blocked by the provider's safety filters
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	if e.Reason == "" {
		return "content blocked"
	}
	return fmt.Sprintf("content blocked: %s", e.Reason)
}

// NewBlockedError creates a new BlockedError
func NewBlockedError(reason string) *BlockedError {
	return &BlockedError{Reason: reason}
}

// ParseError represents a malformed stream payload
type ParseError struct {
	Message string
	Data    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// NewParseError creates a new ParseError
func NewParseError(message, data string) *ParseError {
	return &ParseError{Message: message, Data: data}
}

// FromStatus maps a provider failure to a typed error.
// status is the provider's canonical status string (e.g. RESOURCE_EXHAUSTED)
// and may be empty.
func FromStatus(statusCode int, status, endpoint, message string) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		status == "UNAUTHENTICATED" || status == "PERMISSION_DENIED":
		return NewAuthError(message)
	case statusCode == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
		return NewUsageLimitError(message)
	case statusCode == http.StatusGatewayTimeout || status == "DEADLINE_EXCEEDED":
		return NewTimeoutError(message)
	case statusCode == http.StatusNotFound || status == "NOT_FOUND":
		return NewModelError("", message)
	default:
		return NewAPIError(statusCode, endpoint, message)
	}
}

// FromContext converts a context error into a typed error, or returns nil
// if err is not a context error.
func FromContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err.Error())
	}
	return nil
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) || errors.Is(err, ErrMissingAPIKey)
}

// IsRateLimitError reports whether err is a quota or rate limit failure
func IsRateLimitError(err error) bool {
	var limitErr *UsageLimitError
	return errors.As(err, &limitErr)
}

// IsTimeoutError reports whether err is a timeout
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded)
}

// IsBlockedError reports whether err is a safety block
func IsBlockedError(err error) bool {
	var blockedErr *BlockedError
	return errors.As(err, &blockedErr)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
