package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
)

// Summary collects what gets printed once the service is up.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	notes           []string
}

func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

func (s *Summary) SetStartupDuration(d time.Duration) { s.startupDuration = d }

// AddNote appends a free-form line, such as the selected providers.
func (s *Summary) AddNote(format string, args ...any) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

// Render builds the summary text from the registry's descriptions, health and
// routes.
func (s *Summary) Render(ctx context.Context, reg *component.Registry) string {
	health := make(map[string]component.Health)
	for _, h := range reg.HealthAll(ctx) {
		health[h.Name] = h
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s started in %s\n", s.serviceName, s.version, s.startupDuration.Round(time.Millisecond))

	if descs := reg.Describe(); len(descs) > 0 {
		b.WriteString("components:\n")
		for _, d := range descs {
			status := "?"
			if h, ok := health[d.Name]; ok {
				status = string(h.Status)
			}
			fmt.Fprintf(&b, "  %-10s %-10s %-9s %s\n", d.Name, d.Type, status, d.Details)
		}
	}
	if routes := reg.Routes(); len(routes) > 0 {
		b.WriteString("routes:\n")
		for _, r := range routes {
			fmt.Fprintf(&b, "  %-6s %s\n", r.Method, r.Path)
		}
	}
	for _, n := range s.notes {
		fmt.Fprintf(&b, "  %s\n", n)
	}
	return b.String()
}

// Display logs the rendered summary at info level.
func (s *Summary) Display(ctx context.Context, reg *component.Registry, log *logger.Logger) {
	log.Info("startup summary\n" + s.Render(ctx, reg))
}
