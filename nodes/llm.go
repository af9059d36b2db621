package nodes

import (
	"context"

	"github.com/kbukum/flowrun/llm"
	"github.com/kbukum/flowrun/workflow"
)

// Defaults for llmCall nodes.
const (
	DefaultModel  = "gpt-3.5-turbo"
	DefaultPrompt = "Process the following data:"
)

// Completer answers a prompt for a model. llm.Router implements it.
type Completer interface {
	Complete(ctx context.Context, call llm.Call) (string, error)
}

// LLM sends the node's prompt followed by its input to the model named by
// the node.
func LLM(c Completer) workflow.Executor {
	return workflow.ExecutorFunc(func(ctx context.Context, node workflow.Node, in workflow.Input) (any, error) {
		text, err := c.Complete(ctx, llm.Call{
			Model:  node.Params.StringOr("model", DefaultModel),
			Prompt: node.Params.StringOr("prompt", DefaultPrompt),
			Data:   Stringify(in.Value),
		})
		if err != nil {
			return nil, workflow.FailWith(err, "LLM call failed")
		}
		return text, nil
	})
}
