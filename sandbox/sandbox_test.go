package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func requirePython(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	return path
}

func newTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	cfg.Interpreter = requirePython(t)
	cfg.WorkDir = t.TempDir()
	r, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestExecEcho(t *testing.T) {
	res, err := Exec(context.Background(), Command{Binary: "echo", Args: []string{"hello", "world"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", res.ExitCode)
	}
	if out := strings.TrimSpace(string(res.Stdout)); out != "hello world" {
		t.Fatalf("expected 'hello world', got %q", out)
	}
}

func TestExecExitCode(t *testing.T) {
	res, err := Exec(context.Background(), Command{Binary: "sh", Args: []string{"-c", "echo oops >&2; exit 42"}})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", res.ExitCode)
	}
	var ee *ExitError
	if !stderrors.As(err, &ee) || ee.Code != 42 || ee.Killed {
		t.Errorf("err = %#v, want a non-killed ExitError with code 42", err)
	}
	if !strings.Contains(string(res.Stderr), "oops") {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestExecContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Exec(ctx, Command{Binary: "sleep", Args: []string{"10"}, GracePeriod: 100 * time.Millisecond})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	var ee *ExitError
	if !stderrors.As(err, &ee) || !ee.Killed {
		t.Errorf("err = %#v, want a killed ExitError", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("process was not killed promptly")
	}
}

// processAlive reports whether pid is running. Zombies count as gone.
func processAlive(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	i := bytes.LastIndexByte(data, ')')
	return i < 0 || i+2 >= len(data) || data[i+2] != 'Z'
}

func requireProc(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("/proc not available")
	}
}

func waitGone(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("child %d outlived the cancelled execution", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestExecKillsChildrenIgnoringTerm(t *testing.T) {
	requireProc(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res, err := Exec(ctx, Command{
		Binary:      "sh",
		Args:        []string{"-c", `trap "" TERM; sleep 30 & echo $!; wait`},
		GracePeriod: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error on cancel")
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(res.Stdout)))
	if convErr != nil {
		t.Fatalf("child pid in %q: %v", res.Stdout, convErr)
	}
	waitGone(t, pid)
}

func TestExecEmptyBinary(t *testing.T) {
	if _, err := Exec(context.Background(), Command{}); !stderrors.Is(err, errNoBinary) {
		t.Fatalf("err = %v, want errNoBinary", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Interpreter != "python3" || cfg.Timeout != 30*time.Second || cfg.MaxConcurrent != 4 {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	bad := Config{Interpreter: "python3", Timeout: -time.Second}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func TestRunnerTransformsInput(t *testing.T) {
	r := newTestRunner(t, Config{})
	code := "def process_data(input_data):\n    print('noise on stdout')\n    return {'n': input_data['n'] * 2, 'tags': ['a']}"

	got, err := r.Run(context.Background(), code, map[string]any{"n": 21})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("result type %T", got)
	}
	if m["n"] != json.Number("42") {
		t.Errorf("n = %v", m["n"])
	}
}

func TestRunnerDefaultCodeIsIdentity(t *testing.T) {
	r := newTestRunner(t, Config{})
	got, err := r.Run(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %v", got)
	}

	got, err = r.Run(context.Background(), "  ", nil)
	if err != nil || got != nil {
		t.Errorf("nil input = %v, %v", got, err)
	}
}

func TestRunnerScriptErrors(t *testing.T) {
	r := newTestRunner(t, Config{})
	tests := []struct {
		name     string
		code     string
		wantType string
	}{
		{"exception", "def process_data(x):\n    raise ValueError('bad value')", "ValueError"},
		{"syntax error", "def process_data(x) return x", "SyntaxError"},
		{"missing function", "x = 1", "NameError"},
		{"sys exit", "import sys\ndef process_data(x):\n    sys.exit(3)", "SystemExit"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), tc.code, 1)
			var se *ScriptError
			if !stderrors.As(err, &se) {
				t.Fatalf("expected ScriptError, got %v", err)
			}
			if se.Type != tc.wantType {
				t.Errorf("type = %s, want %s", se.Type, tc.wantType)
			}
		})
	}
}

func TestRunnerNonJSONResultStringified(t *testing.T) {
	r := newTestRunner(t, Config{})
	got, err := r.Run(context.Background(), "def process_data(x):\n    return {1, 2}", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "{1, 2}" {
		t.Errorf("got %v", got)
	}
}

func TestRunnerTimeout(t *testing.T) {
	r := newTestRunner(t, Config{Timeout: 300 * time.Millisecond, GracePeriod: 100 * time.Millisecond})
	_, err := r.Run(context.Background(), "import time\ndef process_data(x):\n    time.sleep(10)", nil)
	if !stderrors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRunnerTimeoutKillsSpawnedProcesses(t *testing.T) {
	requireProc(t)
	r := newTestRunner(t, Config{Timeout: time.Second, GracePeriod: 300 * time.Millisecond})
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	code := fmt.Sprintf(`import signal, subprocess, time
def process_data(x):
    signal.signal(signal.SIGTERM, signal.SIG_IGN)
    child = subprocess.Popen(["sh", "-c", "trap '' TERM; sleep 30"])
    with open(%q, "w") as f:
        f.write(str(child.pid))
    time.sleep(30)`, pidFile)

	_, err := r.Run(context.Background(), code, nil)
	if !stderrors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	data, readErr := os.ReadFile(pidFile)
	if readErr != nil {
		t.Fatalf("child pid file: %v", readErr)
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if convErr != nil {
		t.Fatalf("child pid %q: %v", data, convErr)
	}
	waitGone(t, pid)
}

func TestRunnerKeepsLargeIntegers(t *testing.T) {
	r := newTestRunner(t, Config{})
	got, err := r.Run(context.Background(), "def process_data(x):\n    return [2**63 + 1, 1.5]", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("result = %#v", got)
	}
	if list[0] != json.Number("9223372036854775809") || list[1] != json.Number("1.5") {
		t.Errorf("numbers = %#v", list)
	}
}

func TestRunnerNonFiniteFloatIsScriptError(t *testing.T) {
	r := newTestRunner(t, Config{})
	for _, expr := range []string{"float('nan')", "float('inf')", "{'v': -float('inf')}"} {
		_, err := r.Run(context.Background(), "def process_data(x):\n    return "+expr, nil)
		var se *ScriptError
		if !stderrors.As(err, &se) || se.Type != "ValueError" {
			t.Errorf("%s: err = %v, want a ValueError script error", expr, err)
		}
	}
}

func TestRunnerSaturated(t *testing.T) {
	r, err := NewRunner(Config{MaxConcurrent: 1, Timeout: 50 * time.Millisecond, WorkDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	release, err := r.bulkhead.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	if _, err := r.Run(context.Background(), "", 1); !stderrors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, "", 1); !stderrors.Is(err, context.Canceled) || stderrors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunnerMinimalEnv(t *testing.T) {
	t.Setenv("FLOWRUN_SECRET", "hunter2")
	r := newTestRunner(t, Config{})
	got, err := r.Run(context.Background(), "import os\ndef process_data(x):\n    return os.environ.get('FLOWRUN_SECRET', '')", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "" {
		t.Errorf("service environment leaked into the script: %v", got)
	}
}

func TestRunnerMissingInterpreter(t *testing.T) {
	r, err := NewRunner(Config{Interpreter: "definitely-not-python", WorkDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if r.Available(context.Background()) {
		t.Error("expected interpreter to be unavailable")
	}
	if _, err := r.Run(context.Background(), "", 1); err == nil {
		t.Error("expected error")
	}
}
