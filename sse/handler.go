package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/flowrun/logger"
)

// keepAliveInterval spaces the comment lines that hold idle streams open.
const keepAliveInterval = 30 * time.Second

// ConnectedEvent is sent when a client successfully connects.
type ConnectedEvent struct {
	ClientID string            `json:"client_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type stream struct {
	clientOpts []ClientOption
	initial    func() ([]Frame, bool)
	until      func(Frame) bool
}

// StreamOption configures ServeSSE.
type StreamOption func(*stream)

// WithClientOptions applies options to the registered client.
func WithClientOptions(opts ...ClientOption) StreamOption {
	return func(s *stream) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithInitial sends the frames returned by fn right after the client is
// registered, so nothing published in between is missed. When fn reports
// done the stream ends after those frames.
func WithInitial(fn func() (frames []Frame, done bool)) StreamOption {
	return func(s *stream) { s.initial = fn }
}

// WithUntil ends the stream after the first frame for which fn is true.
func WithUntil(fn func(Frame) bool) StreamOption {
	return func(s *stream) { s.until = fn }
}

// ServeSSE streams hub events for one client until the request ends, the
// hub stops or the WithUntil condition is met.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...StreamOption) {
	var s stream
	for _, opt := range opts {
		opt(&s)
	}
	log := hub.log.WithContext(r.Context()).WithFields(logger.Fields("client_id", clientID))

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived streams must outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	client := NewClient(clientID, s.clientOpts...)
	if !hub.Register(client) {
		http.Error(w, "event hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Metadata: client.Metadata()})
	writeFrame(w, Frame{Event: EventTypeConnected, Data: connected})
	flusher.Flush()
	log.Debug("client connected", logger.Fields("remote_addr", r.RemoteAddr))

	if s.initial != nil {
		frames, done := s.initial()
		for _, f := range frames {
			writeFrame(w, f)
		}
		flusher.Flush()
		if done {
			return
		}
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("reason", ctx.Err().Error()))
			return

		case f, ok := <-client.Events():
			if !ok {
				return
			}
			writeFrame(w, f)
			flusher.Flush()
			if s.until != nil && s.until(f) {
				return
			}

		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, f Frame) {
	name := f.Event
	if name == "" {
		name = EventTypeMessage
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, f.Data)
}
