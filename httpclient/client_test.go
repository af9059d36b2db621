package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flowrun/resilience"
)

func TestClient_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/users/1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("headers = %v", resp.Headers)
	}
	if string(resp.Body) != `{"id":1}` {
		t.Errorf("body = %s", resp.Body)
	}
}

func TestClient_Do_BodyEncoding(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantType string
		wantBody string
	}{
		{"json value", map[string]int{"a": 1}, "application/json", `{"a":1}`},
		{"raw json", json.RawMessage(`[1,2]`), "application/json", `[1,2]`},
		{"string", "plain", "text/plain", "plain"},
		{"bytes", []byte("raw"), "", "raw"},
		{"reader", strings.NewReader("stream"), "", "stream"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got := readAll(r)
				if ct := r.Header.Get("Content-Type"); ct != tc.wantType {
					t.Errorf("Content-Type = %q, want %q", ct, tc.wantType)
				}
				if got != tc.wantBody {
					t.Errorf("body = %q, want %q", got, tc.wantBody)
				}
			}))
			defer srv.Close()

			c, _ := New(Config{})
			if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: srv.URL, Body: tc.body}); err != nil {
				t.Fatalf("Do: %v", err)
			}
		})
	}
}

func readAll(r *http.Request) string {
	b := new(strings.Builder)
	buf := make([]byte, 512)
	for {
		n, err := r.Body.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			return b.String()
		}
	}
}

func TestClient_Do_HeadersAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Default") != "d" || r.Header.Get("X-Req") != "override" {
			t.Errorf("headers = %v", r.Header)
		}
		if r.URL.RawQuery != "a=1&b=2" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{Headers: map[string]string{"X-Default": "d", "X-Req": "default"}})
	_, err := c.Do(context.Background(), Request{
		Method:   http.MethodGet,
		Path:     srv.URL + "?a=1",
		Headers:  map[string]string{"X-Req": "override"},
		RawQuery: "b=2",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestClient_Do_ErrorClassification(t *testing.T) {
	tests := []struct {
		code    int
		checker func(error) bool
	}{
		{401, IsAuth},
		{403, IsAuth},
		{404, IsNotFound},
		{429, IsRateLimit},
		{500, IsServerError},
		{503, IsServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP_%d", tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(`{"error":"test"}`))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			if !tt.checker(err) || !IsStatusError(err) {
				t.Errorf("error classification failed for HTTP %d: %v", tt.code, err)
			}
			if resp == nil || resp.StatusCode != tt.code {
				t.Fatalf("expected the response alongside the error, got %+v", resp)
			}
		})
	}
}

func TestClient_Do_InvalidURL(t *testing.T) {
	c, _ := New(Config{})
	for _, u := range []string{"ftp://example.com/file", "not a url", "://"} {
		_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: u})
		if err == nil || IsStatusError(err) || IsRetryable(err) {
			t.Errorf("%q: expected a non-retryable validation error, got %v", u, err)
		}
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c, _ := New(Config{Timeout: 50 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: srv.URL})
	if !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := New(Config{})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: url})
	if !IsConnection(err) {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestClient_Do_MaxResponseSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	c, err := New(Config{MaxResponseSize: "1KB"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: srv.URL})
	if !hasCode(err, ErrCodeTooLarge) {
		t.Errorf("expected too-large error, got %v", err)
	}
}

func TestClient_Do_RetryKeepsLastResponse(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(503)
		w.Write([]byte("down"))
	}))
	defer srv.Close()

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = 3
	retryCfg.InitialBackoff = time.Millisecond
	retryCfg.RetryIf = IsRetryable

	c, _ := New(Config{RetryConfig: &retryCfg})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: srv.URL, Body: strings.NewReader("payload")})
	if !IsServerError(err) {
		t.Fatalf("expected server error, got %v", err)
	}
	if resp == nil || string(resp.Body) != "down" {
		t.Errorf("expected last response, got %+v", resp)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestClient_Do_RetrySucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(503)
			return
		}
		if got := readAll(r); got != "payload" {
			t.Errorf("attempt body = %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, _ := New(Config{Retry: true})
	c.cfg.RetryConfig.InitialBackoff = time.Millisecond

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: srv.URL, Body: strings.NewReader("payload")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestClient_Do_CircuitBreakerPerHost(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer healthy.Close()

	cbCfg := resilience.DefaultCircuitBreakerConfig("")
	cbCfg.MaxFailures = 2
	c, _ := New(Config{CircuitBreakerConfig: &cbCfg})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		c.Do(ctx, Request{Method: http.MethodGet, Path: failing.URL})
	}

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: failing.URL})
	if !hasCode(err, ErrCodeCircuitOpen) {
		t.Errorf("expected circuit open, got %v", err)
	}
	if _, err := c.Do(ctx, Request{Method: http.MethodGet, Path: healthy.URL}); err != nil {
		t.Errorf("other hosts must not be affected: %v", err)
	}
}

func TestClient_Do_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	cbCfg := resilience.DefaultCircuitBreakerConfig("")
	cbCfg.MaxFailures = 1
	c, _ := New(Config{CircuitBreakerConfig: &cbCfg})

	for i := 0; i < 3; i++ {
		_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: srv.URL})
		if !IsNotFound(err) {
			t.Fatalf("attempt %d: expected not found, got %v", i, err)
		}
	}
}

func TestClient_DoStream_SSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(200)
		fmt.Fprint(w, "event: step.started\ndata: hello\n\ndata: world\n\n")
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	stream, err := c.DoStream(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if stream.SSE == nil {
		t.Fatal("expected SSE reader")
	}
	ev1, err := stream.SSE.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev1.Event != "step.started" || ev1.Data != "hello" {
		t.Errorf("first event = %+v", ev1)
	}
	ev2, err := stream.SSE.Next()
	if err != nil || ev2.Data != "world" {
		t.Errorf("second event = %+v, %v", ev2, err)
	}
}

func TestClient_DoStream_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	if _, err := c.DoStream(context.Background(), Request{Method: http.MethodGet, Path: "/"}); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"bad size", Config{MaxResponseSize: "lots"}, true},
		{"negative rate", Config{RateLimit: -1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestErrorCodeString(t *testing.T) {
	if ErrCodeCircuitOpen.String() != "circuit_open" || ErrorCode(99).String() != "unknown" {
		t.Error("unexpected error code names")
	}
	err := ClassifyStatusCode(418, nil)
	if err.Code != ErrCodeValidation || err.Retryable {
		t.Errorf("418 = %+v", err)
	}
	if ClassifyStatusCode(204, nil) != nil {
		t.Error("2xx must not be an error")
	}
}
