package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/observability"
	"github.com/kbukum/flowrun/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveGin(handlers []gin.HandlerFunc, final gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(handlers...)
	r.Handle(req.Method, "/items/:id", final)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	rr := serveGin([]gin.HandlerFunc{middleware.Recovery(logger.Nop())}, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	}, httptest.NewRequest("GET", "/items/1", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	rr := serveGin([]gin.HandlerFunc{middleware.Recovery(logger.Nop())}, func(*gin.Context) {
		panic("test panic")
	}, httptest.NewRequest("GET", "/items/1", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected error code: %s", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesID(t *testing.T) {
	var seen string
	rr := serveGin([]gin.HandlerFunc{middleware.RequestID()}, func(c *gin.Context) {
		seen = middleware.GetRequestID(c)
		c.Status(http.StatusOK)
	}, httptest.NewRequest("GET", "/items/1", http.NoBody))

	got := rr.Header().Get(middleware.RequestIDHeader)
	if got == "" || got != seen {
		t.Errorf("response id %q, handler id %q", got, seen)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	req := httptest.NewRequest("GET", "/items/1", http.NoBody)
	req.Header.Set("X-Request-Id", "custom-id-123")
	rr := serveGin([]gin.HandlerFunc{middleware.RequestID()}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, req)

	if got := rr.Header().Get("X-Request-Id"); got != "custom-id-123" {
		t.Fatalf("expected custom-id-123, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", "/items/1", http.NoBody))
		codes = append(codes, rr.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest("GET", "/items/1", http.NoBody)
	req.RemoteAddr = "10.0.0.9:1234"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("other client got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Telemetry
// ---------------------------------------------------------------------------

func TestTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observability.NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	rr := serveGin([]gin.HandlerFunc{middleware.Tracing(), middleware.Metrics(metrics)}, func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	}, httptest.NewRequest("POST", "/items/1", http.NoBody))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "http.request.total" {
				found = true
			}
		}
	}
	if !found {
		t.Error("http.request.total not recorded")
	}

	// A nil Metrics is a no-op.
	rr = serveGin([]gin.HandlerFunc{middleware.Metrics(nil)}, func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, httptest.NewRequest("GET", "/items/1", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins:   []string{"https://app.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           600,
	}
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed", http.MethodGet, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"disallowed", http.MethodGet, "https://evil.example.com", http.StatusOK, ""},
		{"no origin", http.MethodGet, "", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://app.example.com", http.StatusNoContent, "https://app.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/items/1", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := serveGin([]gin.HandlerFunc{middleware.CORS(cfg)}, func(c *gin.Context) {
				c.Status(http.StatusOK)
			}, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			h := rr.Header()
			if got := h.Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if tt.wantAllow == "" {
				return
			}
			if h.Get("Access-Control-Allow-Methods") != "GET, POST" ||
				h.Get("Access-Control-Expose-Headers") != middleware.RequestIDHeader ||
				h.Get("Access-Control-Allow-Credentials") != "true" ||
				h.Get("Access-Control-Max-Age") != "600" {
				t.Errorf("headers = %v", h)
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items/1", http.NoBody)
	req.Header.Set("Origin", "https://anything.example.com")
	rr := serveGin([]gin.HandlerFunc{middleware.CORS(&middleware.CORSConfig{AllowedOrigins: []string{"*"}})},
		func(c *gin.Context) { c.Status(http.StatusOK) }, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORS_PreflightSkipsRoute(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS(&middleware.CORSConfig{AllowedOrigins: []string{"*"}}))
	reached := false
	r.OPTIONS("/items/:id", func(c *gin.Context) {
		reached = true
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodOptions, "/items/1", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if reached {
		t.Error("route handler ran after preflight was answered")
	}
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	mw := []gin.HandlerFunc{middleware.RequestID(), middleware.RequestLogger(log)}

	rr := serveGin(mw, func(c *gin.Context) { c.Status(http.StatusNotFound) },
		httptest.NewRequest(http.MethodGet, "/items/7", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}

	var line map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &line); err != nil {
		t.Fatalf("log line: %v (%q)", err, buf.String())
	}
	if line["level"] != "warn" || line["route"] != "/items/:id" || line[logger.FieldRequestID] == nil {
		t.Errorf("log line = %v", line)
	}
}

func TestRequestLogger_QuietPaths(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if buf.Len() != 0 {
		t.Errorf("health probe was logged: %s", buf.String())
	}
}

// ---------------------------------------------------------------------------
// BodyLimit
// ---------------------------------------------------------------------------

func TestBodyLimit(t *testing.T) {
	read := func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	}
	mw := []gin.HandlerFunc{middleware.BodyLimit("1KB")}

	rr := serveGin(mw, read, httptest.NewRequest(http.MethodPost, "/items/1", strings.NewReader("small")))
	if rr.Code != http.StatusOK {
		t.Errorf("small body: status %d", rr.Code)
	}

	// Declared length over the cap is rejected before the handler runs.
	rr = serveGin(mw, read, httptest.NewRequest(http.MethodPost, "/items/1", strings.NewReader(strings.Repeat("x", 2048))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("declared large body: status %d", rr.Code)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("error code = %q", code)
	}

	// Unknown length trips the reader instead.
	req := httptest.NewRequest(http.MethodPost, "/items/1", io.NopCloser(strings.NewReader(strings.Repeat("x", 2048))))
	req.ContentLength = -1
	rr = serveGin(mw, read, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("streamed large body: status %d", rr.Code)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}
