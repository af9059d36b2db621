// Package llm sends llmCall prompts to language model providers.
//
// An [Adapter] talks to one provider over the rest client. Provider wire
// formats live behind [Dialect]; the ollama, openai and anthropic
// subpackages register theirs when imported:
//
//	import _ "github.com/kbukum/flowrun/llm/openai"
//
//	a, err := llm.New(llm.Config{Dialect: "openai", APIKey: key, Model: "gpt-4"})
//	resp, err := a.Execute(ctx, llm.CompletionRequest{
//	    Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
//	})
//
// [Router] maps a model name to a family by prefix ("gpt" is openai,
// "claude" is anthropic, anything else is default) and forwards the call
// to that family's adapter. Families without an adapter answer with
// deterministic mock text, so workflows run without credentials.
package llm
