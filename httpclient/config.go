package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/flowrun/resilience"
	"github.com/kbukum/flowrun/util"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxResponseSize = "10MB"
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the base URL prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the per-attempt request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// MaxResponseSize caps a buffered response body ("512KB", "10MB").
	MaxResponseSize string `yaml:"max_response_size" mapstructure:"max_response_size"`

	// Retry enables retries of transport errors, 429 and 5xx responses
	// with DefaultRetryConfig.
	Retry bool `yaml:"retry" mapstructure:"retry"`

	// CircuitBreaker enables one circuit breaker per target host.
	CircuitBreaker bool `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimit caps outbound requests per second across all hosts. Zero
	// disables it.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	// RetryConfig overrides the retry policy. It implies Retry.
	RetryConfig *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreakerConfig overrides the breaker policy. It implies
	// CircuitBreaker; Name is replaced by the host.
	CircuitBreakerConfig *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxResponseSize == "" {
		c.MaxResponseSize = defaultMaxResponseSize
	}
	if c.Retry && c.RetryConfig == nil {
		c.RetryConfig = DefaultRetryConfig()
	}
	if c.CircuitBreaker && c.CircuitBreakerConfig == nil {
		cfg := resilience.DefaultCircuitBreakerConfig("")
		c.CircuitBreakerConfig = &cfg
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("httpclient: rate_limit must not be negative")
	}
	if c.maxResponseBytes() <= 0 {
		return fmt.Errorf("httpclient: invalid max_response_size %q", c.MaxResponseSize)
	}
	return nil
}

func (c *Config) maxResponseBytes() int64 {
	return util.ParseSize(c.MaxResponseSize, 0)
}

// DefaultRetryConfig returns a retry config that only retries errors
// classified as retryable.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}
