package server

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kbukum/flowrun/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component registers a Server with the bootstrap lifecycle.
type Component struct {
	server *Server
}

func NewComponent(s *Server) *Component { return &Component{server: s} }

func (c *Component) Name() string                    { return componentName }
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }
func (c *Component) Stop(ctx context.Context) error  { return c.server.Stop(ctx) }

// Health is healthy while the listener is bound.
func (c *Component) Health(context.Context) component.Health {
	if c.server.listening() {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "HTTP server not listening"}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: c.server.Addr(),
		Port:    c.server.cfg.Port,
	}
}

var methodRank = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

func rank(method string) int {
	if i := slices.Index(methodRank, method); i >= 0 {
		return i
	}
	return len(methodRank)
}

// Routes lists API routes before probe routes, each group by path and
// then method.
func (c *Component) Routes() []component.Route {
	var out []component.Route
	for _, r := range c.server.engine.Routes() {
		handler := formatHandlerName(r.Handler)
		if systemPaths[r.Path] {
			handler += " (system)"
		}
		out = append(out, component.Route{Method: r.Method, Path: r.Path, Handler: handler})
	}
	slices.SortFunc(out, func(a, b component.Route) int {
		sa, sb := systemPaths[a.Path], systemPaths[b.Path]
		if sa != sb {
			if sa {
				return 1
			}
			return -1
		}
		return cmp.Or(strings.Compare(a.Path, b.Path), cmp.Compare(rank(a.Method), rank(b.Method)))
	})
	return out
}

// formatHandlerName shortens Gin's handler name:
// "github.com/kbukum/flowrun/api.(*Handler).Execute-fm" becomes
// "Handler.Execute" and the closure "server.New.func1" becomes "new".
func formatHandlerName(full string) string {
	name := strings.TrimSuffix(full, "-fm")
	name = name[strings.LastIndex(name, "/")+1:]
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	if i := slices.IndexFunc(parts, func(p string) bool { return strings.HasPrefix(p, "func") }); i > 0 {
		return strings.ToLower(parts[i-1])
	}
	if len(parts) > 1 && parts[0] == strings.ToLower(parts[0]) {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
