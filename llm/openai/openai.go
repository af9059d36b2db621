// Package openai is the llm dialect for the OpenAI chat completions API
// and compatible servers. Importing it registers the "openai" dialect.
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/flowrun/llm"
)

// Name is the registered dialect name.
const Name = "openai"

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests onto POST /v1/chat/completions.
type Dialect struct{}

var (
	_ llm.Dialect       = (*Dialect)(nil)
	_ llm.Authenticator = (*Dialect)(nil)
)

func (*Dialect) Name() string           { return Name }
func (*Dialect) DefaultBaseURL() string { return "https://api.openai.com" }
func (*Dialect) ChatPath() string       { return "/v1/chat/completions" }
func (*Dialect) HealthPath() string     { return "" }

// AuthHeaders sends the key as a bearer token.
func (*Dialect) AuthHeaders(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	Temperature    float64   `json:"temperature,omitempty"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	ResponseFormat any       `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// BuildRequest maps the request. Extra["response_format"] is passed through.
func (*Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	msgs := make([]message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, message{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, message{Role: m.Role, Content: m.Content})
	}
	return chatRequest{
		Model:          req.Model,
		Messages:       msgs,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: req.Extra["response_format"],
	}, nil
}

func (*Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	return &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
