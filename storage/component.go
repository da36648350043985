package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/provider"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
	_ provider.Provider     = (*Component)(nil)
)

// Component builds the backend on Start.
type Component struct {
	cfg     Config
	log     *logger.Logger
	storage Storage
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Storage is nil until Start, and stays nil when disabled.
func (c *Component) Storage() Storage { return c.storage }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("transcript archive disabled")
		return nil
	}
	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.storage == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not initialized"
	default:
		if _, err := c.storage.Exists(ctx, Join(c.cfg.Prefix, ".health")); err != nil {
			h.Status, h.Message = component.StatusDegraded, err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = "provider=" + c.cfg.Provider
		if c.cfg.Provider == ProviderS3 {
			details += " bucket=" + c.cfg.Bucket
		} else {
			details += " path=" + c.cfg.BasePath
		}
	}
	return component.Description{Name: "Transcript archive", Type: "storage", Details: details}
}

// IsAvailable reports whether archiving is active.
func (c *Component) IsAvailable(_ context.Context) bool { return c.storage != nil }

// Prefix is the configured path prefix.
func (c *Component) Prefix() string { return c.cfg.Prefix }
