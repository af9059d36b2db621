package sandbox

import (
	"fmt"
	"time"
)

// Config configures the Python sandbox.
type Config struct {
	// Interpreter is the Python executable, resolved via PATH.
	Interpreter string `mapstructure:"interpreter" yaml:"interpreter"`
	// Timeout bounds one script execution.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// GracePeriod is the delay between SIGTERM and SIGKILL on timeout.
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	// WorkDir holds the per-execution scratch directories. Empty uses the
	// system temp directory.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
	// MaxConcurrent caps simultaneous interpreter processes.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	// InheritEnv passes the service environment to scripts instead of a
	// minimal one.
	InheritEnv bool `mapstructure:"inherit_env" yaml:"inherit_env"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Interpreter == "" {
		c.Interpreter = "python3"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 2 * time.Second
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 4
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Interpreter == "" {
		return fmt.Errorf("sandbox: interpreter is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("sandbox: timeout must be positive")
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("sandbox: max_concurrent must not be negative")
	}
	return nil
}
