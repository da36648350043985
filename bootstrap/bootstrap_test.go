package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/config"
	"github.com/kbukum/transcribe/logger"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
	Upstream             string `mapstructure:"upstream"`
}

func (c *testConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Upstream == "" {
		c.Upstream = "https://api.assemblyai.com"
	}
}

func (c *testConfig) Validate() error { return c.ServiceConfig.Validate() }

type stubComponent struct {
	name    string
	status  component.HealthStatus
	events  *[]string
	startFn func() error
}

func (s *stubComponent) Name() string { return s.name }
func (s *stubComponent) Start(context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	if s.startFn != nil {
		return s.startFn()
	}
	return nil
}
func (s *stubComponent) Stop(context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	return nil
}
func (s *stubComponent) Health(context.Context) component.Health {
	return component.Health{Name: s.name, Status: s.status}
}
func (s *stubComponent) Describe() component.Description {
	return component.Description{Type: "stub", Details: "in-memory"}
}

func newTestApp(t *testing.T) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "transcribe", Version: "0.1.0"}}
	app, err := NewApp(cfg, WithLogger(logger.NewDefault("test")), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	return app
}

func TestNewApp_AppliesDefaultsAndValidates(t *testing.T) {
	app := newTestApp(t)
	if app.Cfg.Upstream == "" || app.Cfg.Environment != "development" {
		t.Errorf("defaults not applied: %+v", app.Cfg)
	}
	if _, err := NewApp(&testConfig{}); err == nil {
		t.Error("expected validation error for missing name")
	}
}

func TestRun_LifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	var events []string
	_ = app.RegisterComponent(&stubComponent{name: "redis", status: component.StatusHealthy, events: &events})
	_ = app.RegisterComponent(&stubComponent{name: "server", status: component.StatusDegraded, events: &events})

	app.OnStart(func(context.Context) error { events = append(events, "onStart"); return nil })
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		events = append(events, "configure:"+a.Cfg.Name)
		return nil
	})
	app.OnReady(func(context.Context) error { events = append(events, "onReady"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "onStop"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatal(err)
	}

	want := "start:redis,start:server,onStart,configure:transcribe,onReady,onStop,stop:server,stop:redis"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s", got)
	}
	if err := app.ReadyCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "server=degraded") {
		t.Errorf("ReadyCheck = %v", err)
	}
}

func TestRun_ConfigureFailure(t *testing.T) {
	app := newTestApp(t)
	var events []string
	_ = app.RegisterComponent(&stubComponent{name: "redis", status: component.StatusHealthy, events: &events})
	app.OnConfigure(func(context.Context, *App[*testConfig]) error { return fmt.Errorf("no api key") })

	if err := app.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "no api key") {
		t.Fatalf("expected configure error, got %v", err)
	}
}

func TestSummary_Render(t *testing.T) {
	var events []string
	reg := component.NewRegistry()
	_ = reg.Register(&stubComponent{name: "redis", status: component.StatusHealthy, events: &events})

	s := NewSummary("transcribe", "0.1.0")
	s.SetStartupDuration(42 * time.Millisecond)
	s.AddNote("transcription provider: %s", "assemblyai")
	out := s.Render(context.Background(), reg)

	for _, want := range []string{"transcribe 0.1.0 started in 42ms", "redis", "healthy", "in-memory", "assemblyai"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
