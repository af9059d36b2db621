// Package sse streams workflow run events to HTTP clients as Server-Sent
// Events.
//
// A [Hub] routes frames to clients by glob pattern over client ids. Run
// subscribers get ids of the form "execution:<run id>:<uuid>", and the
// [Publisher], registered as a workflow observer, broadcasts each run
// event to "execution:<run id>:*".
//
//	comp := sse.NewComponent("/api/execution-events/:id", log)
//	coord := workflow.NewCoordinator(reg, store, workflow.WithObserver(comp.Publisher()))
//
//	sse.ServeSSE(comp.Hub(), w, r, sse.RunClientID(runID),
//	    sse.WithUntil(sse.IsTerminal))
package sse
