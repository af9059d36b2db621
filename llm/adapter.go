package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbukum/flowrun/httpclient/rest"
)

// ErrNoDialect is returned when a config or constructor names no dialect.
var ErrNoDialect = errors.New("llm: dialect is required")

// Adapter sends completions to one provider. Transport concerns such as
// timeouts, retries and the circuit breaker live in the rest client.
type Adapter struct {
	name     string
	client   *rest.Client
	dialect  Dialect
	defaults CompletionRequest
}

// New builds an adapter for the dialect registered under cfg.Dialect.
func New(cfg Config) (*Adapter, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return build(d, cfg)
}

// NewWithDialect builds an adapter around d, bypassing the registry.
func NewWithDialect(d Dialect, cfg Config) (*Adapter, error) {
	if d == nil {
		return nil, ErrNoDialect
	}
	if cfg.Dialect == "" {
		cfg.Dialect = d.Name()
	}
	cfg.applyDefaults()
	return build(d, cfg)
}

func build(d Dialect, cfg Config) (*Adapter, error) {
	client, err := rest.New(cfg.httpConfig(d))
	if err != nil {
		return nil, fmt.Errorf("llm: %s client: %w", cfg.Name, err)
	}
	return &Adapter{
		name:    cfg.Name,
		client:  client,
		dialect: d,
		defaults: CompletionRequest{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}, nil
}

// Name identifies the adapter in logs.
func (a *Adapter) Name() string { return a.name }

// Ping probes the provider's health path.
func (a *Adapter) Ping(ctx context.Context) error {
	path := a.dialect.HealthPath()
	if path == "" {
		return nil
	}
	if _, err := rest.Get[json.RawMessage](ctx, a.client, path); err != nil {
		return fmt.Errorf("llm: %s: %w", a.name, err)
	}
	return nil
}

// Execute runs one completion.
func (a *Adapter) Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if req.Model == "" {
		req.Model = a.defaults.Model
	}
	if req.Temperature == 0 {
		req.Temperature = a.defaults.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.defaults.MaxTokens
	}

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: %s: build request: %w", a.name, err)
	}
	raw, err := rest.Post[json.RawMessage](ctx, a.client, a.dialect.ChatPath(), body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: %s: %w", a.name, err)
	}
	out, err := a.dialect.ParseResponse(raw.Data)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: %s: parse response: %w", a.name, err)
	}
	return *out, nil
}
