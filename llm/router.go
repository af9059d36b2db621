package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Family groups the models served by one backend.
type Family string

// Model families.
const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyDefault   Family = "default"
)

// FamilyOf maps a model name to its family by prefix.
func FamilyOf(model string) Family {
	switch {
	case strings.HasPrefix(model, "gpt"):
		return FamilyOpenAI
	case strings.HasPrefix(model, "claude"):
		return FamilyAnthropic
	default:
		return FamilyDefault
	}
}

// ParseFamily validates a family name from configuration.
func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilyOpenAI, FamilyAnthropic, FamilyDefault:
		return f, nil
	default:
		return "", fmt.Errorf("llm: unknown model family %q", s)
	}
}

// RouterConfig configures one backend per model family. Keys are family
// names; families left out answer with offline mock text.
type RouterConfig struct {
	Backends map[string]Config `yaml:"backends" mapstructure:"backends"`
}

// Call is a single prompt sent on behalf of a workflow node.
type Call struct {
	Model  string
	Prompt string
	Data   string
}

// Text is the full prompt: the instruction followed by the node's data.
func (c Call) Text() string {
	return c.Prompt + "\n\nData: " + c.Data
}

// Completer runs a single completion. *Adapter implements it.
type Completer interface {
	Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Router dispatches calls to the backend of the model's family.
type Router struct {
	mu       sync.RWMutex
	backends map[Family]Completer
}

// NewRouter builds an adapter for every configured family.
func NewRouter(cfg RouterConfig) (*Router, error) {
	r := &Router{backends: make(map[Family]Completer, len(cfg.Backends))}
	for name, bc := range cfg.Backends {
		family, err := ParseFamily(name)
		if err != nil {
			return nil, err
		}
		if bc.Name == "" {
			bc.Name = string(family) + "-llm"
		}
		a, err := New(bc)
		if err != nil {
			return nil, fmt.Errorf("llm: backend %s: %w", family, err)
		}
		r.backends[family] = a
	}
	return r, nil
}

// Set installs or replaces the backend for a family.
func (r *Router) Set(f Family, c Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[f] = c
}

// Backend returns the backend configured for a family.
func (r *Router) Backend(f Family) (Completer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.backends[f]
	return c, ok
}

// Families lists the configured families in sorted order.
func (r *Router) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.backends))
	for f := range r.backends {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}

// Unreachable pings every backend that supports it and returns the errors
// keyed by family.
func (r *Router) Unreachable(ctx context.Context) map[Family]error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[Family]error{}
	for f, c := range r.backends {
		p, ok := c.(interface{ Ping(context.Context) error })
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			out[f] = err
		}
	}
	return out
}

// Complete sends the call to its family's backend and returns the text.
// Without a backend the call is answered with mock text.
func (r *Router) Complete(ctx context.Context, call Call) (string, error) {
	family := FamilyOf(call.Model)
	backend, ok := r.Backend(family)
	if !ok {
		return MockResponse(family, call.Model, call.Data), nil
	}
	resp, err := backend.Execute(ctx, CompletionRequest{
		Model:    call.Model,
		Messages: []Message{{Role: RoleUser, Content: call.Text()}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// MockResponse is the offline answer for a family without a backend.
func MockResponse(f Family, model, data string) string {
	switch f {
	case FamilyOpenAI:
		return fmt.Sprintf("Mock OpenAI %s response for: %s", model, data)
	case FamilyAnthropic:
		return fmt.Sprintf("Mock Anthropic %s response for: %s", model, data)
	default:
		return "Mock LLM response for: " + data
	}
}
