package llm

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is what a backend receives. Zero values fall back to
// the adapter's configured defaults.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	// Extra carries provider fields, e.g. "format" for ollama or
	// "response_format" for openai.
	Extra map[string]any
}

// CompletionResponse is the provider-neutral result of a completion.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Usage counts tokens.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Dialect translates completions to and from one provider's wire format.
type Dialect interface {
	Name() string
	DefaultBaseURL() string
	ChatPath() string
	// HealthPath is probed by Adapter.Ping. Empty skips the probe.
	HealthPath() string
	BuildRequest(req CompletionRequest) (any, error)
	ParseResponse(body []byte) (*CompletionResponse, error)
}

// Authenticator is implemented by dialects that need API key headers.
type Authenticator interface {
	AuthHeaders(apiKey string) map[string]string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Dialect{}
)

// RegisterDialect makes a dialect available to New under name. Provider
// packages call it from init; a later registration replaces an earlier one.
func RegisterDialect(name string, d Dialect) {
	registryMu.Lock()
	registry[name] = d
	registryMu.Unlock()
}

// GetDialect looks up a registered dialect.
func GetDialect(name string) (Dialect, error) {
	registryMu.RLock()
	d, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: dialect %q is not registered", name)
	}
	return d, nil
}

// Dialects returns the registered names, sorted.
func Dialects() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}
