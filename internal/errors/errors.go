// Package errors provides the structured API error taxonomy and the
// centralized handler that renders errors over HTTP.
package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined errors covering the service taxonomy: invalid input (400),
// unauthorized (401), not found (404), conflict (409), internal (500).
var (
	// 400 Bad Request
	ErrInvalidInput     = New(http.StatusBadRequest, "INVALID_INPUT", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrMissingParameter = New(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")

	// 401 Unauthorized
	ErrUnauthorized = New(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")

	// 404 Not Found
	ErrNotFound        = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrLicenseNotFound = New(http.StatusNotFound, "LICENSE_NOT_FOUND", "License key not found")
	ErrProductNotFound = New(http.StatusNotFound, "PRODUCT_NOT_FOUND", "Referenced product not found")

	// 409 Conflict
	ErrConflict         = New(http.StatusConflict, "CONFLICT", "Resource conflict")
	ErrCapacityConflict = New(http.StatusConflict, "CAPACITY_EXHAUSTED", "License capacity exhausted")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalFailure = New(http.StatusInternalServerError, "INTERNAL_FAILURE", "Internal server error")
	ErrStorageFailure  = New(http.StatusInternalServerError, "STORAGE_FAILURE", "Persistent store operation failed")
)

// InvalidInputWithError creates an invalid input error carrying the cause
func InvalidInputWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_INPUT", "Invalid request format", err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", ValidationError{
		Field:   field,
		Message: message,
	})
}

// NotFoundError creates a not found error naming the missing resource
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}

// ConflictError creates a conflict error carrying the cause
func ConflictError(err error) *APIError {
	return NewWithDetails(http.StatusConflict, "CONFLICT", "Resource conflict", err.Error())
}

// UnauthorizedError creates an unauthorized error with a specific message
func UnauthorizedError(message string) *APIError {
	return New(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// InternalError creates an internal failure error carrying the cause
func InternalError(err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, "INTERNAL_FAILURE", "Internal server error", err.Error())
}
