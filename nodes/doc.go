// Package nodes provides the executors for the built-in workflow node
// kinds and a constructor that registers them all:
//
//	reg := nodes.NewRegistry(nodes.Deps{
//	    Logger:  log,
//	    Sandbox: runner,
//	    LLM:     router,
//	    HTTP:    client,
//	})
//
// Each executor reads its parameters from the node's data bag and returns
// workflow failures with a kind-specific message prefix.
package nodes
