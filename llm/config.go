package llm

import (
	"fmt"
	"time"

	"github.com/kbukum/flowrun/httpclient"
)

const defaultTimeout = 120 * time.Second

// Config holds configuration for creating an LLM adapter.
// The Dialect field selects the provider mapping.
type Config struct {
	// Name identifies this adapter instance (e.g., "openai-llm").
	Name string `yaml:"name" mapstructure:"name"`

	// Dialect selects the provider mapping ("ollama", "openai", "anthropic").
	// Must match a dialect registered via RegisterDialect.
	Dialect string `yaml:"dialect" mapstructure:"dialect"`

	// BaseURL is the provider's API base URL. Dialects supply a default.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Model is the default model when a request names none.
	Model string `yaml:"model" mapstructure:"model"`

	// APIKey is passed to the dialect's auth headers.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Temperature is the default sampling temperature (0.0-1.0).
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens is the default maximum tokens for responses. 0 means provider default.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout for HTTP requests. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are additional HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry enables retries of transport errors, 429 and 5xx responses.
	Retry bool `yaml:"retry" mapstructure:"retry"`

	// CircuitBreaker enables circuit breaker protection for the provider host.
	CircuitBreaker bool `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimit caps requests per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// applyDefaults sets default values for unset config fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" && c.Dialect != "" {
		c.Name = c.Dialect + "-llm"
	}
}

// Validate checks the config before an adapter is built from it.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return ErrNoDialect
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm: temperature %v out of range", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("llm: max_tokens must not be negative")
	}
	return nil
}

// httpConfig maps the adapter config onto the shared HTTP client config.
func (c *Config) httpConfig(d Dialect) httpclient.Config {
	headers := make(map[string]string, len(c.Headers)+2)
	if a, ok := d.(Authenticator); ok && c.APIKey != "" {
		for k, v := range a.AuthHeaders(c.APIKey) {
			headers[k] = v
		}
	}
	for k, v := range c.Headers {
		headers[k] = v
	}
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = d.DefaultBaseURL()
	}
	return httpclient.Config{
		BaseURL:        baseURL,
		Timeout:        c.Timeout,
		Headers:        headers,
		Retry:          c.Retry,
		CircuitBreaker: c.CircuitBreaker,
		RateLimit:      c.RateLimit,
	}
}
