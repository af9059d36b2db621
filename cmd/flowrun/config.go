package main

import (
	"fmt"
	"time"

	_ "github.com/kbukum/flowrun/llm/anthropic"
	_ "github.com/kbukum/flowrun/llm/ollama"
	_ "github.com/kbukum/flowrun/llm/openai"

	"github.com/kbukum/flowrun/config"
	"github.com/kbukum/flowrun/httpclient"
	"github.com/kbukum/flowrun/llm"
	"github.com/kbukum/flowrun/observability"
	"github.com/kbukum/flowrun/sandbox"
	"github.com/kbukum/flowrun/server"
	"github.com/kbukum/flowrun/version"
)

const serviceName = "flowrun"

// Config is the flowrun service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Engine        EngineConfig         `yaml:"engine" mapstructure:"engine"`
	Sandbox       sandbox.Config       `yaml:"sandbox" mapstructure:"sandbox"`
	LLM           llm.RouterConfig     `yaml:"llm" mapstructure:"llm"`
	HTTPNode      httpclient.Config    `yaml:"http_node" mapstructure:"http_node"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Workflows     WorkflowsConfig      `yaml:"workflows" mapstructure:"workflows"`
}

// EngineConfig bounds run admission.
type EngineConfig struct {
	// MaxConcurrentRuns caps runs in flight. Zero leaves runs unbounded.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
	// MaxWait is how long a submission waits for a free slot.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// WorkflowsConfig locates named workflow definitions.
type WorkflowsConfig struct {
	Dirs []string `yaml:"dirs" mapstructure:"dirs"`
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.GetShortVersion()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Sandbox.ApplyDefaults()
	c.HTTPNode.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Engine.MaxConcurrentRuns > 0 && c.Engine.MaxWait == 0 {
		c.Engine.MaxWait = time.Second
	}
	if len(c.Workflows.Dirs) == 0 {
		c.Workflows.Dirs = []string{"./workflows", "./cmd/flowrun/workflows"}
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Sandbox.Validate(); err != nil {
		return err
	}
	if err := c.HTTPNode.Validate(); err != nil {
		return fmt.Errorf("http_node: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if c.Engine.MaxConcurrentRuns < 0 {
		return fmt.Errorf("engine.max_concurrent_runs must be non-negative (got: %d)", c.Engine.MaxConcurrentRuns)
	}
	for name, backend := range c.LLM.Backends {
		if _, err := llm.ParseFamily(name); err != nil {
			return err
		}
		if err := backend.Validate(); err != nil {
			return fmt.Errorf("llm.backends.%s: %w", name, err)
		}
	}
	return nil
}

// loadConfig reads the config file, .env and FLOWRUN_* environment
// variables. An empty path searches the default locations.
func loadConfig(path string) (*Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
