// Package anthropic is the llm dialect for the Anthropic Messages API.
// Importing it registers the "anthropic" dialect.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/flowrun/llm"
)

// Name is the registered dialect name.
const Name = "anthropic"

const (
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1000
)

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests onto POST /v1/messages.
type Dialect struct{}

var (
	_ llm.Dialect       = (*Dialect)(nil)
	_ llm.Authenticator = (*Dialect)(nil)
)

func (*Dialect) Name() string           { return Name }
func (*Dialect) DefaultBaseURL() string { return "https://api.anthropic.com" }
func (*Dialect) ChatPath() string       { return "/v1/messages" }
func (*Dialect) HealthPath() string     { return "" }

// AuthHeaders sends the key and the pinned API version.
func (*Dialect) AuthHeaders(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": apiVersion,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BuildRequest maps the request. System messages are lifted into the
// top-level system field.
func (*Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	system := req.SystemPrompt
	msgs := make([]message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		msgs = append(msgs, message{Role: m.Role, Content: m.Content})
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return messagesRequest{
		Model:       req.Model,
		System:      system,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}, nil
}

func (*Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return &llm.CompletionResponse{
		Content: sb.String(),
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
