package llm

import (
	"time"

	"github.com/kbukum/transcribe/provider"
)

// Factory builds a completer from a loosely typed config map.
type Factory = provider.Factory[Completer]

// NewRegistry creates a registry of completion backends keyed by name.
func NewRegistry() *provider.Registry[Completer] {
	return provider.NewRegistry[Completer]()
}

// DialectFactory returns a Factory that builds an Adapter for the named
// dialect from a config map.
func DialectFactory(dialect string) Factory {
	return func(m map[string]any) (Completer, error) {
		cfg := Config{
			Dialect: dialect,
			APIKey:  provider.ConfigString(m, "api_key", ""),
			Model:   provider.ConfigString(m, "model", ""),
			BaseURL: provider.ConfigString(m, "base_url", ""),
		}
		if n, ok := m["max_tokens"].(int); ok {
			cfg.MaxTokens = n
		}
		if t, ok := m["temperature"].(float64); ok {
			cfg.Temperature = t
		}
		if d, ok := m["timeout"].(time.Duration); ok {
			cfg.Timeout = d
		}
		return New(cfg)
	}
}
