// Package httpclient provides the outbound HTTP client used by workflow
// nodes and the command-line client: configurable timeouts, a response size
// cap, retries of retryable failures, one circuit breaker per host and an
// optional global rate limit.
//
// Subpackages provide protocol-specific convenience layers:
//
//   - rest: JSON client with generic typed methods
//   - sse: Server-Sent Events reader
//
// Basic usage:
//
//	client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second, Retry: true})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "https://api.example.com/users/123",
//	})
//
// Non-2xx responses are returned together with a classified *Error so
// callers that treat any status as data can still read the body.
package httpclient
