package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/flowrun/logger"
)

const (
	clientBuffer = 256
	hubBuffer    = 256
)

// Client is one open event stream. Its id is what Hub patterns match
// against.
type Client struct {
	id     string
	meta   map[string]string
	frames chan Frame
	log    *logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata attaches a key echoed back in the connected event.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) { c.meta[key] = value }
}

// NewClient returns an unregistered client.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:     id,
		meta:   map[string]string{},
		frames: make(chan Frame, clientBuffer),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Metadata() map[string]string { return c.meta }

// Events is closed when the client leaves the hub or the hub stops.
func (c *Client) Events() <-chan Frame { return c.frames }

// Send queues f without blocking. A slow client loses frames rather than
// stalling the hub.
func (c *Client) Send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		c.log.Warn("client buffer full, frame dropped", logger.Fields("client_id", c.id, "event", f.Event))
		return false
	}
}

// Message addresses a frame to every client whose id matches Pattern.
type Message struct {
	Pattern string
	Frame   Frame
}

// Hub fans frames out to clients. Membership changes and delivery happen
// on the Run goroutine; the lock only guards readers such as ClientCount.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	joins  chan *Client
	leaves chan *Client
	queue  chan Message

	quit     chan struct{}
	quitOnce sync.Once
	log      *logger.Logger
}

// NewHub returns a hub that does nothing until Run is called.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: map[string]*Client{},
		joins:   make(chan *Client),
		leaves:  make(chan *Client),
		queue:   make(chan Message, hubBuffer),
		quit:    make(chan struct{}),
		log:     log.WithComponent("sse"),
	}
}

// Run serves the hub until Stop, then closes every client.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.joins:
			h.add(c)
		case c := <-h.leaves:
			h.remove(c)
		case msg := <-h.queue:
			h.deliver(msg)
		case <-h.quit:
			h.removeAll()
			return
		}
	}
}

// Stop ends Run. It may be called more than once.
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// Done is closed by Stop.
func (h *Hub) Done() <-chan struct{} { return h.quit }

// Register hands c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.joins <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes c and closes its Events channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leaves <- c:
	case <-h.quit:
	}
}

// BroadcastToPattern queues f for the clients matching pattern. It never
// blocks; a full queue drops the frame.
func (h *Hub) BroadcastToPattern(pattern string, f Frame) {
	select {
	case h.queue <- Message{Pattern: pattern, Frame: f}:
	case <-h.quit:
	default:
		h.log.Warn("hub queue full, frame dropped", logger.Fields("pattern", pattern, "event", f.Event))
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	c.log = h.log
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("client joined", logger.Fields("client_id", c.id, "clients", n))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	cur, ok := h.clients[c.id]
	if ok && cur == c {
		delete(h.clients, c.id)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok && cur == c {
		close(c.frames)
		h.log.Debug("client left", logger.Fields("client_id", c.id, "clients", n))
	}
}

func (h *Hub) removeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.frames)
		delete(h.clients, id)
	}
}

func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, c := range h.clients {
		match, err := filepath.Match(msg.Pattern, id)
		if err != nil {
			h.log.Error("bad broadcast pattern", logger.Fields("pattern", msg.Pattern, logger.FieldError, err.Error()))
			return
		}
		if match && c.Send(msg.Frame) {
			sent++
		}
	}
	h.log.Debug("frame delivered", logger.Fields("pattern", msg.Pattern, "event", msg.Frame.Event, "clients", sent))
}
