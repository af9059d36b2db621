package nodes

import (
	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/workflow"
)

// Deps are the collaborators of the built-in executors. Kinds whose
// dependency is nil are left unregistered and run as pass-through.
type Deps struct {
	Logger  *logger.Logger
	Sandbox ScriptRunner
	LLM     Completer
	HTTP    Doer
}

// NewRegistry returns a registry with an executor for every built-in kind
// whose dependencies are present.
func NewRegistry(d Deps) *workflow.Registry {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}

	reg := workflow.NewRegistry()
	reg.Register(workflow.KindInput, Input())
	reg.Register(workflow.KindOutput, Output(log))
	reg.Register(workflow.KindTextEditor, TextEditor())
	if d.Sandbox != nil {
		reg.Register(workflow.KindPythonFunction, Python(d.Sandbox))
	}
	if d.LLM != nil {
		reg.Register(workflow.KindLLMCall, LLM(d.LLM))
	}
	if d.HTTP != nil {
		reg.Register(workflow.KindCurl, Curl(d.HTTP))
	}
	return reg
}
