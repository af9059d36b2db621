package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/kbukum/flowrun/httpclient/sse"
	"github.com/kbukum/flowrun/resilience"
)

// Client sends requests with the policies in its Config: a per-attempt
// timeout, a response size cap, retries, a breaker per target host and a
// shared outbound rate limit.
type Client struct {
	cfg     Config
	hc      *http.Client
	streams *http.Client
	limit   int64
	limiter *resilience.RateLimiter

	breakers sync.Map // host -> *resilience.CircuitBreaker
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &Client{
		cfg:   cfg,
		hc:    &http.Client{Transport: transport, Timeout: cfg.Timeout},
		// Streams are bounded by the caller's context, not Timeout.
		streams: &http.Client{Transport: transport},
		limit:   cfg.maxResponseBytes(),
	}
	if cfg.RateLimit > 0 {
		c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{Name: "httpclient", Rate: cfg.RateLimit})
	}
	return c, nil
}

// Do sends req and buffers the reply. A non-2xx reply returns both the
// Response and a classified *Error. When retries are on, the last
// attempt's response and error are returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := req.replayable(); err != nil {
		return nil, err
	}
	attempt := func() (*Response, error) { return c.attempt(ctx, req) }
	if c.cfg.RetryConfig == nil {
		return attempt()
	}
	return resilience.Retry(ctx, *c.cfg.RetryConfig, attempt)
}

// DoStream sends req once and hands back the open body. An event-stream
// reply comes back as an SSE reader. Error statuses are buffered and
// classified.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	hreq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.streams.Do(hreq)
	if err != nil {
		return nil, transportError(hreq, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, c.limit))
		return nil, ClassifyStatusCode(resp.StatusCode, body)
	}

	out := &StreamResponse{StatusCode: resp.StatusCode, Headers: firstValues(resp.Header), raw: resp}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "text/event-stream" {
		out.SSE = sse.NewReader(resp.Body)
	} else {
		out.Body = resp.Body
	}
	return out, nil
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewTimeoutError(err)
		}
	}
	hreq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	cb := c.breaker(hreq.URL.Host)
	if cb == nil {
		return c.roundTrip(hreq)
	}

	// 4xx replies say nothing about the host's health, so they pass
	// through the breaker as successes and are returned afterwards.
	var resp *Response
	var clientErr error
	err = cb.Execute(func() error {
		var rtErr error
		resp, rtErr = c.roundTrip(hreq)
		if rtErr != nil && !IsRetryable(rtErr) {
			clientErr = rtErr
			return nil
		}
		return rtErr
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return nil, NewCircuitOpenError(hreq.URL.Host)
	case err != nil:
		return resp, err
	}
	return resp, clientErr
}

func (c *Client) breaker(host string) *resilience.CircuitBreaker {
	if c.cfg.CircuitBreakerConfig == nil {
		return nil
	}
	if cb, ok := c.breakers.Load(host); ok {
		return cb.(*resilience.CircuitBreaker)
	}
	cfg := *c.cfg.CircuitBreakerConfig
	cfg.Name = host
	cb, _ := c.breakers.LoadOrStore(host, resilience.NewCircuitBreaker(cfg))
	return cb.(*resilience.CircuitBreaker)
}

func (c *Client) roundTrip(hreq *http.Request) (*Response, error) {
	resp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, transportError(hreq, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.limit+1))
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > c.limit {
		return nil, NewTooLargeError(c.limit)
	}
	out := &Response{StatusCode: resp.StatusCode, Headers: firstValues(resp.Header), Body: body}
	if statusErr := ClassifyStatusCode(resp.StatusCode, body); statusErr != nil {
		return out, statusErr
	}
	return out, nil
}

// transportError classifies a failure to get any response.
func transportError(hreq *http.Request, err error) *Error {
	var te interface{ Timeout() bool }
	if hreq.Context().Err() != nil || (errors.As(err, &te) && te.Timeout()) {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}
