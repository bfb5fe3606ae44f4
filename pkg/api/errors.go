package api

import "fmt"

// ErrorType represents the category of a protocol error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest covers requests the transport cannot parse
	// at all (bad JSON, oversized body, wrong content type).
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeProtocolViolation covers well-formed requests that break a
	// protocol rule, such as reusing a call ID that already reached a
	// terminal state. The call is rejected before execution.
	ErrorTypeProtocolViolation ErrorType = "protocol_violation"

	// ErrorTypeHandlerFailure covers errors reported by the external
	// handler, including timeouts and cancellation. Call-scoped: it never
	// affects the session or other concurrent calls.
	ErrorTypeHandlerFailure ErrorType = "handler_failure"

	// ErrorTypeResumeUnavailable means the requested replay state no
	// longer exists; the caller must restart the call with a new ID.
	ErrorTypeResumeUnavailable ErrorType = "resume_unavailable"

	// ErrorTypeServerError covers internal failures, including recovered
	// panics.
	ErrorTypeServerError ErrorType = "server_error"
)

// Error codes refining ErrorTypeHandlerFailure.
const (
	CodeTimeout   = "timeout"
	CodeCancelled = "cancelled"
)

// APIError is a structured protocol error with type, optional code and
// param, and a human-readable message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError as the top-level body of a transport
// level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for unparseable requests.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewProtocolViolationError creates an APIError for protocol rule breaches.
func NewProtocolViolationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeProtocolViolation,
		Message: message,
	}
}

// NewHandlerFailureError creates an APIError for external handler errors.
func NewHandlerFailureError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeHandlerFailure,
		Message: message,
	}
}

// NewTimeoutError creates a handler failure carrying a timeout reason.
func NewTimeoutError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeHandlerFailure,
		Code:    CodeTimeout,
		Message: message,
	}
}

// NewCancelledError creates a handler failure carrying a cancellation
// reason.
func NewCancelledError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeHandlerFailure,
		Code:    CodeCancelled,
		Message: message,
	}
}

// NewResumeUnavailableError creates an APIError signalling that replay
// state for a call is gone.
func NewResumeUnavailableError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeResumeUnavailable,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
