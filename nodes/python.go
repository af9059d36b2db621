package nodes

import (
	"context"

	"github.com/kbukum/flowrun/workflow"
)

// ScriptRunner runs a process_data snippet out of process. sandbox.Runner
// implements it.
type ScriptRunner interface {
	Run(ctx context.Context, code string, input any) (any, error)
}

// Python executes the node's code with its input as the single argument.
// Empty code runs the identity function.
func Python(runner ScriptRunner) workflow.Executor {
	return workflow.ExecutorFunc(func(ctx context.Context, node workflow.Node, in workflow.Input) (any, error) {
		out, err := runner.Run(ctx, node.Params.String("code"), in.Value)
		if err != nil {
			return nil, workflow.FailWith(err, "Python function execution failed")
		}
		return out, nil
	})
}
