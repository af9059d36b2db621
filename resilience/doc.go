// Package resilience holds the fault-tolerance primitives flowrun wires
// into its outbound and inbound paths:
//
//   - CircuitBreaker: per-host fail-fast in the HTTP node client
//   - Retry: exponential backoff for retryable HTTP failures
//   - Bulkhead: caps on concurrent runs and sandbox processes
//   - RateLimiter: token buckets for outbound calls and API clients
package resilience
