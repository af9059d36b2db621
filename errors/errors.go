package errors

import (
	"fmt"
)

// AppError is an error that knows how it should reach an API client.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Retryable  bool
	Details    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause records the underlying error. It is logged, never sent.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithDetail adds a key to the details object of the response.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// New builds an AppError whose status and retryability follow from code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: code.Status(),
		Retryable:  code.Retryable(),
	}
}

// Validation reports a request that failed validation.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

// InvalidInput reports a bad value for one request field.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// InvalidGraph reports a workflow graph that cannot be run.
func InvalidGraph(reason string) *AppError {
	return New(ErrCodeInvalidGraph, "Invalid workflow graph: "+reason)
}

// PayloadTooLarge reports a request body over limit bytes.
func PayloadTooLarge(limit int64) *AppError {
	return New(ErrCodePayloadTooLarge, "Request body too large.").WithDetail("limit", limit)
}

// NotFound reports a missing resource such as an execution or a stored
// workflow.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource)).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// RateLimited reports a saturated limit; reason is shown to the client.
func RateLimited(reason string) *AppError {
	if reason == "" {
		reason = "Too many requests. Please wait a moment and try again."
	}
	return New(ErrCodeRateLimited, reason)
}

// ServiceUnavailable reports a subsystem that is not running.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s service is unavailable.", service)).
		WithDetail("service", service)
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}
