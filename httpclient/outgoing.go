package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// replayable buffers a reader body so every retry sends the same bytes.
func (r *Request) replayable() error {
	rd, ok := r.Body.(io.Reader)
	if !ok {
		return nil
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return NewValidationError(fmt.Sprintf("read body: %v", err))
	}
	r.Body = data
	return nil
}

// target resolves path against the base URL. Absolute http(s) URLs are
// used as they are.
func (c *Client) target(path string) string {
	if c.cfg.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, c.target(req.Path), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}
	if s := hreq.URL.Scheme; s != "http" && s != "https" {
		return nil, NewValidationError(fmt.Sprintf("unsupported URL scheme %q", s))
	}

	u := hreq.URL
	if req.RawQuery != "" {
		u.RawQuery = strings.Trim(u.RawQuery+"&"+req.RawQuery, "&")
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	for _, headers := range []map[string]string{c.cfg.Headers, req.Headers} {
		for k, v := range headers {
			hreq.Header.Set(k, v)
		}
	}
	if body != nil && contentType != "" && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	return hreq, nil
}

// encodeBody picks the wire form of a body value: readers and bytes go as
// they are, strings as text, anything else as JSON.
func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case json.RawMessage:
		return bytes.NewReader(v), "application/json", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

// firstValues keeps the first value of each header.
func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
