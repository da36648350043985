package provider

import (
	"context"
	"fmt"
)

// Provider is implemented by every backend.
type Provider interface {
	Name() string
	// IsAvailable reports whether the backend can take requests right now.
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from a loosely typed configuration map.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// ConfigString reads a string option, returning def when absent or empty.
func ConfigString(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

// RequireString reads a mandatory string option.
func RequireString(cfg map[string]any, key string) (string, error) {
	v := ConfigString(cfg, key, "")
	if v == "" {
		return "", fmt.Errorf("provider config: %s is required", key)
	}
	return v, nil
}

// ConfigBool reads a boolean option.
func ConfigBool(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return def
}
