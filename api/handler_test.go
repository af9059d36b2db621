package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowrun/api"
	ssereader "github.com/kbukum/flowrun/httpclient/sse"
	"github.com/kbukum/flowrun/nodes"
	"github.com/kbukum/flowrun/sse"
	"github.com/kbukum/flowrun/workflow"
	"github.com/kbukum/flowrun/workflow/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	engine *gin.Engine
	coord  *workflow.Coordinator
	hub    *sse.Hub
	gate   chan struct{}
}

// newFixture wires the built-in executors plus a "curl" executor that
// blocks until gate is closed, so tests can hold a run open.
func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	f := &fixture{gate: make(chan struct{})}

	f.hub = sse.NewHub(nil)
	go f.hub.Run()
	t.Cleanup(f.hub.Stop)

	reg := nodes.NewRegistry(nodes.Deps{})
	reg.Register(workflow.KindCurl, testutil.NewMockExecutorFunc(func(ctx context.Context, _ workflow.Node, in workflow.Input) (any, error) {
		select {
		case <-f.gate:
			return in.Value, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	reg.Register(workflow.KindPythonFunction, testutil.NewMockExecutor(nil, workflow.Failf("Python function execution failed: boom")))

	f.coord = workflow.NewCoordinator(reg, workflow.NewMemoryStore(), workflow.WithObserver(sse.NewPublisher(f.hub)))
	t.Cleanup(func() {
		f.release()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.coord.Wait(ctx)
	})

	f.engine = gin.New()
	api.New(f.coord, append([]api.Option{api.WithEvents(f.hub)}, opts...)...).Register(f.engine)
	return f
}

func (f *fixture) release() {
	select {
	case <-f.gate:
	default:
		close(f.gate)
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.engine.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	body := decode[map[string]string](t, rr)
	if body["status"] != "healthy" {
		t.Errorf("status = %q", body["status"])
	}
	if _, err := time.Parse(time.RFC3339Nano, body["timestamp"]); err != nil {
		t.Errorf("timestamp %q: %v", body["timestamp"], err)
	}
}

func TestExecute_Completed(t *testing.T) {
	f := newFixture(t)
	g := testutil.NewGraphBuilder().
		Node("in", "input", "label", "hello").
		Node("edit", "textEditor").
		Node("out", "output").
		Chain("in", "edit", "out").
		Build()

	rr := f.do(t, http.MethodPost, "/api/execute-workflow", g)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	snap := decode[workflow.Snapshot](t, rr)
	if snap.Status != workflow.RunCompleted {
		t.Errorf("run status = %s", snap.Status)
	}
	if snap.FinalResult != "hello" {
		t.Errorf("final_result = %v", snap.FinalResult)
	}
	if len(snap.Steps) != 3 || snap.ID == "" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestExecute_NodeFailureIsAResult(t *testing.T) {
	f := newFixture(t)
	g := testutil.NewGraphBuilder().
		Node("in", "input").
		Node("py", "pythonFunction").
		Node("out", "output").
		Chain("in", "py", "out").
		Build()

	rr := f.do(t, http.MethodPost, "/api/execute-workflow", g)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	snap := decode[workflow.Snapshot](t, rr)
	if snap.Status != workflow.RunError {
		t.Errorf("run status = %s", snap.Status)
	}
	step, ok := snap.FailedStep()
	if !ok || step.NodeID != "py" {
		t.Fatalf("failed step = %+v", step)
	}
	if out, _ := snap.Step("out"); out.Status != workflow.StepWaiting {
		t.Errorf("downstream step = %s, want waiting", out.Status)
	}
}

func TestExecute_BadRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body any
		code string
	}{
		{"not json", "{nodes:", "INVALID_INPUT"},
		{"missing node id", `{"nodes":[{"type":"input"}],"edges":[]}`, "INVALID_INPUT"},
		{"duplicate node", `{"nodes":[{"id":"a","type":"input"},{"id":"a","type":"output"}],"edges":[]}`, "INVALID_GRAPH"},
		{"dangling edge", `{"nodes":[{"id":"a","type":"input"}],"edges":[{"id":"e1","source":"a","target":"b"}]}`, "INVALID_GRAPH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, http.MethodPost, "/api/execute-workflow", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
			}
			if body := decode[errorBody](t, rr); body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.code)
			}
		})
	}

	if n := len(f.coord.Store().List()); n != 0 {
		t.Errorf("rejected submissions created %d runs", n)
	}
}

func TestExecute_Async(t *testing.T) {
	f := newFixture(t)
	g := testutil.NewGraphBuilder().
		Node("in", "input").
		Node("call", "curl").
		Chain("in", "call").
		Build()

	rr := f.do(t, http.MethodPost, "/api/execute-workflow?async=true", g)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	snap := decode[workflow.Snapshot](t, rr)
	if snap.Status != workflow.RunRunning {
		t.Fatalf("async status = %s", snap.Status)
	}

	rr = f.do(t, http.MethodGet, "/api/execution-status/"+snap.ID, nil)
	if got := decode[workflow.Snapshot](t, rr); got.Status != workflow.RunRunning {
		t.Errorf("status while gated = %s", got.Status)
	}

	f.release()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rr = f.do(t, http.MethodGet, "/api/execution-status/"+snap.ID, nil)
		got := decode[workflow.Snapshot](t, rr)
		if got.Status == workflow.RunCompleted {
			if got.FinalResult != nodes.DefaultInputLabel {
				t.Errorf("final_result = %v", got.FinalResult)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run did not complete: %+v", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatus_NotFound(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/execution-status/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
	if body := decode[errorBody](t, rr); body.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %s", body.Error.Code)
	}

	rr = f.do(t, http.MethodGet, "/api/execution-events/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("events status %d", rr.Code)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	g := testutil.NewGraphBuilder().Node("in", "input").Build()
	for i := 0; i < 2; i++ {
		if rr := f.do(t, http.MethodPost, "/api/execute-workflow", g); rr.Code != http.StatusOK {
			t.Fatalf("status %d", rr.Code)
		}
	}

	rr := f.do(t, http.MethodGet, "/api/executions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	body := decode[struct {
		Data []workflow.Summary `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}](t, rr)
	if len(body.Data) != 2 || body.Meta.Total != 2 {
		t.Errorf("listing = %+v", body)
	}
	for _, s := range body.Data {
		if s.Status != workflow.RunCompleted || s.Nodes != 1 {
			t.Errorf("summary = %+v", s)
		}
	}
}

func TestEvents_FinishedRun(t *testing.T) {
	f := newFixture(t)
	g := testutil.NewGraphBuilder().Node("in", "input").Build()
	snap := decode[workflow.Snapshot](t, f.do(t, http.MethodPost, "/api/execute-workflow", g))

	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	r := openStream(t, srv.URL+"/api/execution-events/"+snap.ID)
	if ev := nextEvent(t, r); ev.Event != sse.EventTypeConnected {
		t.Fatalf("first event = %q", ev.Event)
	}
	ev := nextEvent(t, r)
	if ev.Event != sse.EventTypeSnapshot {
		t.Fatalf("second event = %q", ev.Event)
	}
	var got workflow.Snapshot
	if err := json.Unmarshal([]byte(ev.Data), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != workflow.RunCompleted {
		t.Errorf("snapshot status = %s", got.Status)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("stream of a finished run should close, got %v", err)
	}
}

func TestEvents_LiveRun(t *testing.T) {
	f := newFixture(t)
	g := testutil.NewGraphBuilder().
		Node("in", "input").
		Node("call", "curl").
		Chain("in", "call").
		Build()
	snap := decode[workflow.Snapshot](t, f.do(t, http.MethodPost, "/api/execute-workflow?async=true", g))

	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	r := openStream(t, srv.URL+"/api/execution-events/"+snap.ID)
	nextEvent(t, r) // connected
	if ev := nextEvent(t, r); ev.Event != sse.EventTypeSnapshot {
		t.Fatalf("expected snapshot, got %q", ev.Event)
	}

	f.release()

	var last *ssereader.Event
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		last = ev
	}
	if last == nil || last.Event != string(workflow.EventRunCompleted) {
		t.Fatalf("last event = %+v", last)
	}
	var e workflow.Event
	if err := json.Unmarshal([]byte(last.Data), &e); err != nil {
		t.Fatal(err)
	}
	if e.RunID != snap.ID || e.FinalResult != nodes.DefaultInputLabel {
		t.Errorf("terminal event = %+v", e)
	}
}

func TestWorkflows(t *testing.T) {
	dir := t.TempDir()
	def := `name: greet
description: say hello
nodes:
  - id: in
    type: input
    data:
      label: hi there
  - id: out
    type: output
edges:
  - id: e1
    source: in
    target: out
`
	if err := os.WriteFile(filepath.Join(dir, "greet.yaml"), []byte(def), 0o600); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, api.WithDefinitions(workflow.NewFileLoader(dir)))

	rr := f.do(t, http.MethodGet, "/api/workflows", nil)
	body := decode[struct {
		Data []api.DefinitionInfo `json:"data"`
	}](t, rr)
	if len(body.Data) != 1 || body.Data[0].Name != "greet" || body.Data[0].Nodes != 2 {
		t.Fatalf("workflows = %+v", body.Data)
	}

	rr = f.do(t, http.MethodPost, "/api/workflows/greet/execute", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if snap := decode[workflow.Snapshot](t, rr); snap.FinalResult != "hi there" {
		t.Errorf("final_result = %v", snap.FinalResult)
	}

	rr = f.do(t, http.MethodPost, "/api/workflows/missing/execute", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing workflow status %d", rr.Code)
	}
}

func TestWorkflows_NoDefinitions(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/workflows", nil)
	body := decode[struct {
		Data []api.DefinitionInfo `json:"data"`
	}](t, rr)
	if rr.Code != http.StatusOK || body.Data == nil || len(body.Data) != 0 {
		t.Errorf("status %d, data %v", rr.Code, body.Data)
	}
}

func openStream(t *testing.T, url string) ssereader.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status %d", resp.StatusCode)
	}
	r := ssereader.NewReader(resp.Body)
	t.Cleanup(func() { r.Close() })
	return r
}

func nextEvent(t *testing.T, r ssereader.Reader) *ssereader.Event {
	t.Helper()
	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return ev
}
