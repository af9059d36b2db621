// Package errors is the API error model. An AppError pairs an ErrorCode,
// which fixes the HTTP status and whether a retry can help, with a message
// for the client and an optional cause that is only logged.
package errors
