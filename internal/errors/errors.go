package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError is an error a handler returns when it already knows the HTTP outcome
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func apiError(status int, code, message string, details interface{}) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message, Details: details}
}

var (
	ErrInvalidRequest     = apiError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", nil)
	ErrPipelineRunning    = apiError(http.StatusConflict, "PIPELINE_RUNNING", "A pipeline run is already in progress", nil)
	ErrFactsNotReady      = apiError(http.StatusServiceUnavailable, "FACTS_NOT_READY", "Fact table has not been built yet", nil)
	ErrServiceUnavailable = apiError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable", nil)
)

// ErrValidation rejects a single request field
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors rejects a request with every failed field listed
func NewValidationErrors(errs []ValidationError) *APIError {
	return apiError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", errs)
}

// NotFoundError reports a missing user, operation or other resource
func NotFoundError(resource string) *APIError {
	return apiError(http.StatusNotFound, "NOT_FOUND", resource+" not found", resource)
}
