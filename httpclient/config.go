package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/transcribe/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Headers are sent with every request; request headers win on conflict.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// Auth applies to every request unless a request overrides it.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`
	// CircuitBreaker guards the upstream when set. Only connection, timeout
	// and 5xx failures count against it; cancelled requests do not count.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return nil
}

// DefaultCircuitBreakerConfig returns a breaker config that ignores 4xx and
// requests the caller cancelled.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = IsUpstreamFailure
	cfg.IsIgnored = IsCanceled
	return &cfg
}
