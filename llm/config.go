package llm

import (
	"fmt"
	"time"
)

// Config describes one completion backend. Dialect selects the wire format.
type Config struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Dialect string `yaml:"dialect" mapstructure:"dialect"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// APIKey never leaves the server.
	APIKey      string            `yaml:"api_key" mapstructure:"api_key"`
	Model       string            `yaml:"model" mapstructure:"model"`
	Temperature float64           `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int               `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Headers     map[string]string `yaml:"headers" mapstructure:"headers"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Name == "" && c.Dialect != "" {
		c.Name = c.Dialect
	}
}

func (c *Config) Validate() error {
	if c.Dialect == "" {
		return fmt.Errorf("llm: dialect is required")
	}
	if c.Model == "" {
		return fmt.Errorf("llm: model is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("llm: max_tokens must not be negative")
	}
	return nil
}
