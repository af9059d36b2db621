package sandbox

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const defaultGrace = 2 * time.Second

var errNoBinary = errors.New("sandbox: binary is required")

// Command describes one interpreter invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	// Env is the complete environment. Nil inherits the service's.
	Env   []string
	Stdin io.Reader
	// GracePeriod separates SIGTERM from SIGKILL on cancellation.
	GracePeriod time.Duration
}

// Result is what a finished process left behind. ExitCode is -1 when the
// process never started or was killed by a signal.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Exec runs cmd to completion with both output streams captured. The
// process leads its own group so that cancelling ctx also reaches any
// children it spawned.
func Exec(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errNoBinary
	}
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // the interpreter comes from config
	c.Dir, c.Env, c.Stdin = cmd.Dir, cmd.Env, cmd.Stdin
	c.Stdout, c.Stderr = &stdout, &stderr
	g := inGroup(c, cmd.GracePeriod)

	began := time.Now()
	runErr := c.Run()
	g.reap()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(began),
	}

	switch {
	case runErr == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, &ExitError{Code: res.ExitCode, Err: ctx.Err(), Killed: true}
	default:
		return res, &ExitError{Code: res.ExitCode, Err: runErr}
	}
}

// ExitError reports a process that failed or was stopped.
type ExitError struct {
	Code   int
	Killed bool
	Err    error
}

func (e *ExitError) Error() string {
	if e.Killed {
		return fmt.Sprintf("sandbox: killed: %v", e.Err)
	}
	return fmt.Sprintf("sandbox: exit code %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// group is the process group led by a command. Once cancelled, every
// member gets SIGTERM and, grace later, SIGKILL.
type group struct {
	cmd   *exec.Cmd
	grace time.Duration

	mu   sync.Mutex
	kill *time.Timer
}

// inGroup puts c in a new process group and routes cancellation through
// the returned group.
func inGroup(c *exec.Cmd, grace time.Duration) *group {
	g := &group{cmd: c, grace: cmp.Or(max(grace, 0), defaultGrace)}
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = g.terminate
	c.WaitDelay = g.grace
	return g
}

func (g *group) terminate() error {
	pgid := g.cmd.Process.Pid
	g.mu.Lock()
	g.kill = time.AfterFunc(g.grace, func() { _ = syscall.Kill(-pgid, syscall.SIGKILL) })
	g.mu.Unlock()
	return syscall.Kill(-pgid, syscall.SIGTERM)
}

// reap runs after Wait. Members of a cancelled group that are still
// alive, typically children ignoring SIGTERM, are killed so none outlive
// the execution.
func (g *group) reap() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.kill == nil {
		return
	}
	g.kill.Stop()
	_ = syscall.Kill(-g.cmd.Process.Pid, syscall.SIGKILL)
}

// minimalEnv is all user code gets: a home, python settings and PATH.
func minimalEnv(home string) []string {
	env := []string{"HOME=" + home, "PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8"}
	if path := os.Getenv("PATH"); path != "" {
		env = append(env, "PATH="+path)
	}
	return env
}
