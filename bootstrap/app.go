package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/flowrun/component"
	"github.com/kbukum/flowrun/config"
	"github.com/kbukum/flowrun/logger"
)

// Config is satisfied by any struct that embeds config.ServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

const defaultGracefulTimeout = 15 * time.Second

// App owns a service's components and drives them through one lifecycle.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	grace     time.Duration
	quiet     bool
	configure []func(ctx context.Context, app *App[C]) error
	stopping  []func(ctx context.Context) error
}

// Option tunes NewApp.
type Option func(*settings)

type settings struct {
	log   *logger.Logger
	grace time.Duration
	quiet bool
}

// WithLogger replaces the logger NewApp would build from cfg.Logging.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds the whole shutdown sequence.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) { s.grace = d }
}

// WithQuiet skips the startup banner, for commands whose stdout is data.
func WithQuiet() Option {
	return func(s *settings) { s.quiet = true }
}

// NewApp defaults and validates cfg, then builds the logger and registry.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	s := settings{grace: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	base := cfg.GetServiceConfig()
	if s.log == nil {
		s.log = logger.New(&base.Logging, base.Name)
		logger.SetGlobalLogger(s.log)
	}
	return &App[C]{
		Name:       base.Name,
		Version:    base.Version,
		Cfg:        cfg,
		Components: component.NewRegistry(s.log),
		Logger:     s.log,
		Summary:    NewSummary(base.Name, base.Version),
		grace:      s.grace,
		quiet:      s.quiet,
	}, nil
}

func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure adds a step that runs before any component starts. Steps
// usually register components.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.configure = append(a.configure, fn)
}

// OnStop adds a step that runs at shutdown while components are still up,
// e.g. draining in-flight work.
func (a *App[C]) OnStop(fns ...func(ctx context.Context) error) {
	a.stopping = append(a.stopping, fns...)
}
