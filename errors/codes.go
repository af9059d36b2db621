package errors

import "net/http"

// ErrorCode is the machine-readable code in every error body.
type ErrorCode string

const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidGraph marks a submitted graph with missing or
	// duplicate node ids or edges that point at unknown nodes.
	ErrCodeInvalidGraph    ErrorCode = "INVALID_GRAPH"
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimited covers both per-client API limits and a full run
	// bulkhead.
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

type codeSpec struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeSpec{
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeInvalidGraph:       {http.StatusBadRequest, false},
	ErrCodePayloadTooLarge:    {http.StatusRequestEntityTooLarge, false},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// Status is the HTTP status for code; unknown codes map to 500.
func (c ErrorCode) Status() int {
	if s, ok := codes[c]; ok {
		return s.status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a client may repeat the request unchanged.
func (c ErrorCode) Retryable() bool { return codes[c].retryable }
