// Package testutil provides mock executors and a graph builder for tests
// that drive the workflow coordinator.
package testutil
