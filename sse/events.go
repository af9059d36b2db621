package sse

// Stream-level event names. Run lifecycle events use the workflow event
// type as their name.
const (
	// EventTypeConnected is sent when a client successfully connects.
	EventTypeConnected = "connected"

	// EventTypeSnapshot carries the full run snapshot.
	EventTypeSnapshot = "snapshot"

	// EventTypeMessage is the default name for unnamed frames.
	EventTypeMessage = "message"

	// EventTypeError is sent when the stream cannot continue.
	EventTypeError = "error"
)

// Frame is one event written to a stream.
type Frame struct {
	Event string
	Data  []byte
}
