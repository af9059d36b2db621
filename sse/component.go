package sse

import (
	"context"
	"fmt"

	"github.com/kbukum/flowrun/component"
	"github.com/kbukum/flowrun/logger"
)

// Component runs a Hub for the lifetime of the server.
type Component struct {
	hub      *Hub
	path     string
	finished chan struct{}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent returns a component whose hub serves clients of path.
// The path is only shown in the startup banner.
func NewComponent(path string, log *logger.Logger) *Component {
	return &Component{hub: NewHub(log), path: path}
}

func (c *Component) Hub() *Hub { return c.hub }

// Publisher turns workflow events into frames on the hub.
func (c *Component) Publisher() *Publisher { return NewPublisher(c.hub) }

func (c *Component) Name() string { return "sse" }

func (c *Component) Start(context.Context) error {
	if c.finished != nil {
		return fmt.Errorf("sse: already started")
	}
	c.finished = make(chan struct{})
	go func() {
		defer close(c.finished)
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the hub loop to exit.
func (c *Component) Stop(ctx context.Context) error {
	c.hub.Stop()
	if c.finished == nil {
		return nil
	}
	select {
	case <-c.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	select {
	case <-c.hub.Done():
		h.Status, h.Message = component.StatusUnhealthy, "hub stopped"
	default:
		h.Message = fmt.Sprintf("%d clients connected", c.hub.ClientCount())
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "Run Events", Type: "sse", Details: "Path: " + c.path}
}
