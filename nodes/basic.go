package nodes

import (
	"context"

	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/workflow"
)

// DefaultInputLabel is returned by input nodes without a label.
const DefaultInputLabel = "input_data"

// Input emits the node's label. It ignores its own input.
func Input() workflow.Executor {
	return workflow.ExecutorFunc(func(_ context.Context, node workflow.Node, _ workflow.Input) (any, error) {
		return node.Params.StringOr("label", DefaultInputLabel), nil
	})
}

// Output logs the value it receives and passes it on.
func Output(log *logger.Logger) workflow.Executor {
	log = log.WithComponent("nodes.output")
	return workflow.ExecutorFunc(func(ctx context.Context, node workflow.Node, in workflow.Input) (any, error) {
		log.WithContext(ctx).Info("Output: "+Stringify(in.Value), logger.Fields(
			logger.FieldNodeID, node.ID,
			"input_status", string(in.Status),
		))
		return in.Value, nil
	})
}

// TextEditor converts its input to text.
func TextEditor() workflow.Executor {
	return workflow.ExecutorFunc(func(_ context.Context, _ workflow.Node, in workflow.Input) (any, error) {
		return Stringify(in.Value), nil
	})
}
