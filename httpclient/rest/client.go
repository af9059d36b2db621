package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"

	"github.com/kbukum/flowrun/httpclient"
)

const jsonType = "application/json"

// Client speaks JSON over an httpclient.Client.
type Client struct {
	http *httpclient.Client
}

// New builds a client that sends and accepts JSON unless cfg.Headers says
// otherwise. cfg.Headers itself is not modified.
func New(cfg httpclient.Config) (*Client, error) {
	headers := map[string]string{"Content-Type": jsonType, "Accept": jsonType}
	maps.Copy(headers, cfg.Headers)
	cfg.Headers = headers

	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

// HTTP exposes the underlying client, e.g. for DoStream.
func (c *Client) HTTP() *httpclient.Client { return c.http }

// RequestOption adjusts one request.
type RequestOption func(*httpclient.Request)

func WithQuery(params map[string]string) RequestOption {
	return func(r *httpclient.Request) { r.Query = params }
}

// WithHeaders adds headers over the client defaults.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *httpclient.Request) {
		if r.Headers == nil {
			r.Headers = map[string]string{}
		}
		maps.Copy(r.Headers, headers)
	}
}

// Response is a reply with its body decoded into Data.
type Response[T any] struct {
	StatusCode int
	Headers    map[string]string
	Data       T
}

func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return send[T](ctx, c, httpclient.Request{Method: http.MethodGet, Path: path}, opts)
}

func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return send[T](ctx, c, httpclient.Request{Method: http.MethodPost, Path: path, Body: body}, opts)
}

// send decodes the body into T. For an error status the decoded body is
// returned alongside the error when it parses, so callers can read
// structured error payloads.
func send[T any](ctx context.Context, c *Client, req httpclient.Request, opts []RequestOption) (*Response[T], error) {
	for _, opt := range opts {
		opt(&req)
	}
	resp, err := c.http.Do(ctx, req)
	if resp == nil {
		return nil, err
	}

	out := &Response[T]{StatusCode: resp.StatusCode, Headers: resp.Headers}
	if len(resp.Body) == 0 {
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	if jsonErr := json.Unmarshal(resp.Body, &out.Data); jsonErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("httpclient/rest: decode response: %w", jsonErr)
	}
	return out, err
}
