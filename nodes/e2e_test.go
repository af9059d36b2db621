package nodes_test

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/flowrun/llm"
	"github.com/kbukum/flowrun/nodes"
	"github.com/kbukum/flowrun/workflow"
	"github.com/kbukum/flowrun/workflow/testutil"
)

func TestWorkflowThroughBuiltinExecutors(t *testing.T) {
	router, err := llm.NewRouter(llm.RouterConfig{})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	reg := nodes.NewRegistry(nodes.Deps{LLM: router})
	coord := workflow.NewCoordinator(reg, workflow.NewMemoryStore())

	g := testutil.NewGraphBuilder().
		Node("in", "input", "label", "quarterly numbers").
		Node("llm", "llmCall", "model", "gpt-4").
		Node("edit", "textEditor").
		Node("out", "output").
		Chain("in", "llm", "edit", "out").
		Build()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := coord.Submit(ctx, g)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.Status != workflow.RunCompleted {
		t.Fatalf("status = %s", snap.Status)
	}
	want := "Mock OpenAI gpt-4 response for: quarterly numbers"
	if snap.FinalResult != want {
		t.Errorf("final = %v, want %q", snap.FinalResult, want)
	}
}

func TestUnregisteredPythonPassesThrough(t *testing.T) {
	reg := nodes.NewRegistry(nodes.Deps{})
	coord := workflow.NewCoordinator(reg, workflow.NewMemoryStore())

	g := testutil.NewGraphBuilder().
		Node("in", "input", "label", "x").
		Node("py", "pythonFunction").
		Chain("in", "py").
		Build()

	snap, err := coord.Submit(context.Background(), g)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap.FinalResult != "x" {
		t.Errorf("final = %v, want pass-through", snap.FinalResult)
	}
}
