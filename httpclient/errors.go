package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode says what went wrong with a request.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
	ErrCodeTooLarge
	ErrCodeCircuitOpen
)

var codeNames = [...]string{
	ErrCodeTimeout:     "timeout",
	ErrCodeConnection:  "connection",
	ErrCodeAuth:        "auth",
	ErrCodeNotFound:    "not_found",
	ErrCodeRateLimit:   "rate_limit",
	ErrCodeValidation:  "validation",
	ErrCodeServer:      "server",
	ErrCodeTooLarge:    "too_large",
	ErrCodeCircuitOpen: "circuit_open",
}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}

// Error is returned for every failed request. StatusCode and Body are set
// only when a response arrived.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func transient(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Retryable: true, Err: err}
}

// NewTimeoutError wraps a deadline hit before the response completed.
func NewTimeoutError(err error) *Error { return transient(ErrCodeTimeout, err) }

// NewConnectionError wraps a dial, TLS or read failure.
func NewConnectionError(err error) *Error { return transient(ErrCodeConnection, err) }

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// NewTooLargeError reports a response body above the configured cap.
func NewTooLargeError(limit int64) *Error {
	return &Error{Code: ErrCodeTooLarge, Message: fmt.Sprintf("response body exceeds %d bytes", limit)}
}

// NewCircuitOpenError reports a host whose breaker is open.
func NewCircuitOpenError(host string) *Error {
	return &Error{Code: ErrCodeCircuitOpen, Message: "circuit open for " + host}
}

// ClassifyStatusCode maps a non-2xx status to an *Error. 429 and 5xx are
// retryable. A 2xx status yields nil.
func ClassifyStatusCode(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Body: body, Message: http.StatusText(status)}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", status)
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Code = ErrCodeAuth
	case http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	default:
		if status >= 400 && status < 500 {
			e.Code = ErrCodeValidation
		} else {
			e.Code, e.Retryable = ErrCodeServer, status >= 500
		}
	}
	return e
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := asError(err)
	return ok && e.Code == code
}

// IsStatusError reports whether err came from a response status rather
// than a failure to get a response.
func IsStatusError(err error) bool {
	e, ok := asError(err)
	return ok && e.StatusCode > 0
}

// IsRetryable is the default retry predicate.
func IsRetryable(err error) bool {
	e, ok := asError(err)
	return ok && e.Retryable
}

func IsTimeout(err error) bool     { return hasCode(err, ErrCodeTimeout) }
func IsConnection(err error) bool  { return hasCode(err, ErrCodeConnection) }
func IsAuth(err error) bool        { return hasCode(err, ErrCodeAuth) }
func IsNotFound(err error) bool    { return hasCode(err, ErrCodeNotFound) }
func IsRateLimit(err error) bool   { return hasCode(err, ErrCodeRateLimit) }
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }
