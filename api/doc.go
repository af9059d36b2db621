// Package api exposes workflow execution over HTTP: synchronous and async
// submission, run status and listing, per-run Server-Sent Events and named
// workflow definitions. Handlers are mounted on a gin router under /api.
package api
