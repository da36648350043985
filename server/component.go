package server

import (
	"context"
	"sort"
	"strings"

	"github.com/kbukum/transcribe/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

func NewComponent(s *Server) *Component { return &Component{server: s} }

func (c *Component) Name() string                    { return componentName }
func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }
func (c *Component) Stop(ctx context.Context) error  { return c.server.Stop(ctx) }

func (c *Component) Health(_ context.Context) component.Health {
	if c.server.addr == "" {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: c.server.addr}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: c.server.config.Addr(),
		Port:    c.server.config.Port,
	}
}

var systemPaths = map[string]bool{"/health": true, "/info": true}

// Routes lists gin routes, application routes first.
func (c *Component) Routes() []component.Route {
	rs := c.server.engine.Routes()
	sort.Slice(rs, func(i, j int) bool {
		si, sj := systemPaths[rs[i].Path], systemPaths[rs[j].Path]
		if si != sj {
			return !si
		}
		if rs[i].Path != rs[j].Path {
			return rs[i].Path < rs[j].Path
		}
		return methodOrder(rs[i].Method) < methodOrder(rs[j].Method)
	})
	out := make([]component.Route, 0, len(rs))
	for _, r := range rs {
		out = append(out, component.Route{Method: r.Method, Path: r.Path, Handler: handlerName(r.Handler)})
	}
	return out
}

// handlerName turns "github.com/x/web.(*Handler).Summarize-fm" into "Handler.Summarize".
func handlerName(full string) string {
	name := strings.TrimSuffix(full, "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	parts := strings.Split(name, ".")
	for len(parts) > 1 && strings.HasPrefix(parts[len(parts)-1], "func") {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

func methodOrder(m string) int {
	switch m {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT", "PATCH":
		return 2
	case "DELETE":
		return 3
	}
	return 4
}
