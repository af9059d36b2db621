package workflow

import (
	"errors"
	"fmt"
)

// ExecutionFailure is a node-level failure. The coordinator records its
// message on the step, marks the run as errored and stops; it never
// escapes as a request error.
type ExecutionFailure struct {
	NodeID  string
	Kind    Kind
	Message string
	Err     error
}

func (f *ExecutionFailure) Error() string { return f.Message }

func (f *ExecutionFailure) Unwrap() error { return f.Err }

// Failf builds an ExecutionFailure from a format string.
func Failf(format string, args ...any) error {
	return &ExecutionFailure{Message: fmt.Sprintf(format, args...)}
}

// FailWith builds an ExecutionFailure that wraps err. The message is the
// formatted context followed by err's text.
func FailWith(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &ExecutionFailure{Message: msg, Err: err}
}

// asFailure normalizes any executor error into an ExecutionFailure bound
// to node.
func asFailure(node Node, err error) *ExecutionFailure {
	var f *ExecutionFailure
	if errors.As(err, &f) {
		out := *f
		out.NodeID, out.Kind = node.ID, node.Kind()
		return &out
	}
	return &ExecutionFailure{NodeID: node.ID, Kind: node.Kind(), Message: err.Error(), Err: err}
}
