package httpclient

import (
	"io"
	"net/http"

	"github.com/kbukum/flowrun/httpclient/sse"
)

// Request is one outbound call. Path is joined to Config.BaseURL unless it
// is already an absolute http(s) URL.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string // override Config.Headers
	Query   map[string]string
	// RawQuery is appended as-is, before Query is merged in.
	RawQuery string
	// Body may be an io.Reader, []byte, string or json.RawMessage; any
	// other value is sent as JSON.
	Body any
}

// Response is a fully buffered reply. Headers keep the first value of each.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// StreamResponse is an open reply body. Exactly one of SSE and Body is set;
// Close must be called either way.
type StreamResponse struct {
	StatusCode int
	Headers    map[string]string
	SSE        sse.Reader
	Body       io.ReadCloser

	raw *http.Response
}

// Close releases the connection.
func (r *StreamResponse) Close() error {
	return r.raw.Body.Close()
}
