package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/resilience"
	"github.com/kbukum/flowrun/util"
)

// ErrTimeout is returned when a script exceeds the configured timeout.
var ErrTimeout = stderrors.New("sandbox: execution timed out")

// ErrBusy is returned when no interpreter slot frees up in time.
var ErrBusy = stderrors.New("sandbox: too many concurrent executions")

// ScriptError is an exception raised by user code.
type ScriptError struct {
	Type      string
	Message   string
	Traceback string
}

func (e *ScriptError) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}

// outcome is the document the harness writes to output.json.
type outcome struct {
	OK        bool            `json:"ok"`
	Value     json.RawMessage `json:"value"`
	Type      string          `json:"type"`
	Error     string          `json:"error"`
	Traceback string          `json:"traceback"`
}

// Runner executes Python snippets that define process_data(input_data).
// Each execution gets a fresh scratch directory; data crosses the process
// boundary as JSON files only.
type Runner struct {
	cfg      Config
	log      *logger.Logger
	bulkhead *resilience.Bulkhead
}

// NewRunner creates a Runner. cfg is defaulted and validated.
func NewRunner(cfg Config, log *logger.Logger) (*Runner, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		cfg: cfg,
		log: log.WithComponent("sandbox"),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "sandbox",
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		}),
	}, nil
}

// Config returns the effective configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run executes code with input and returns process_data's JSON-decoded
// result. An empty code runs DefaultCode.
func (r *Runner) Run(ctx context.Context, code string, input any) (any, error) {
	if strings.TrimSpace(code) == "" {
		code = DefaultCode
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding input: %w", err)
	}

	release, err := r.bulkhead.Acquire(ctx)
	if err != nil {
		if stderrors.Is(err, resilience.ErrBulkheadFull) || stderrors.Is(err, resilience.ErrBulkheadTimeout) {
			return nil, ErrBusy
		}
		return nil, err
	}
	defer release()

	dir, err := os.MkdirTemp(r.cfg.WorkDir, "flowrun-py-")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	files := map[string][]byte{
		harnessFile: []byte(harness),
		codeFile:    []byte(code),
		inputFile:   payload,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := Command{
		Binary:      r.cfg.Interpreter,
		Args:        []string{filepath.Join(dir, harnessFile), dir},
		Dir:         dir,
		GracePeriod: r.cfg.GracePeriod,
	}
	if !r.cfg.InheritEnv {
		cmd.Env = minimalEnv(dir)
	}

	res, execErr := Exec(ctx, cmd)
	if res != nil {
		r.log.Debug("script finished", logger.Fields(
			"exit_code", res.ExitCode,
			logger.FieldDuration, res.Duration.Milliseconds(),
			"stdout_bytes", len(res.Stdout),
		))
	}
	if execErr != nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, r.cfg.Timeout)
	}

	out, readErr := readOutcome(filepath.Join(dir, outputFile))
	if readErr != nil {
		if execErr != nil {
			return nil, fmt.Errorf("%w: %s", execErr, stderrTail(res))
		}
		return nil, fmt.Errorf("reading result: %w", readErr)
	}
	if !out.OK {
		return nil, &ScriptError{Type: out.Type, Message: out.Error, Traceback: out.Traceback}
	}

	value, err := decodeValue(out.Value)
	if err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return value, nil
}

// decodeValue keeps numbers as json.Number so integers beyond float64
// precision survive the trip.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func readOutcome(path string) (*outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func stderrTail(res *Result) string {
	if res == nil {
		return ""
	}
	return util.Truncate(strings.TrimSpace(string(res.Stderr)), 2000)
}

// Available reports whether the interpreter can be started.
func (r *Runner) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := Exec(ctx, Command{Binary: r.cfg.Interpreter, Args: []string{"--version"}})
	return err == nil
}
