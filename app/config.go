package app

import (
	"fmt"

	"github.com/kbukum/transcribe/config"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/session"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/summarize"
	"github.com/kbukum/transcribe/transcription"
	"github.com/kbukum/transcribe/transcription/assemblyai"
	"github.com/kbukum/transcribe/util"
	"github.com/kbukum/transcribe/validation"
	"github.com/kbukum/transcribe/version"
)

// ServiceName is the default service name and the config file lookup key.
const ServiceName = "transcribe"

// uploadHeadroom leaves room for multipart framing above the audio limit.
const uploadHeadroom = 1 << 20

// Config is the whole service configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server server.Config `yaml:"server" mapstructure:"server"`
	// Transcriber names the transcription backend.
	Transcriber   string                     `yaml:"transcriber" mapstructure:"transcriber" validate:"oneof=assemblyai"`
	AssemblyAI    assemblyai.Config          `yaml:"assemblyai" mapstructure:"assemblyai"`
	Poller        transcription.PollerConfig `yaml:"poller" mapstructure:"poller"`
	Summarizer    summarize.Config           `yaml:"summarizer" mapstructure:"summarizer"`
	Session       session.Config             `yaml:"session" mapstructure:"session"`
	Redis         redis.Config               `yaml:"redis" mapstructure:"redis"`
	Storage       storage.Config             `yaml:"storage" mapstructure:"storage"`
	Observability observability.Config       `yaml:"observability" mapstructure:"observability"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Transcriber == "" {
		c.Transcriber = assemblyai.ProviderName
	}
	c.AssemblyAI.ApplyDefaults()
	c.Poller.ApplyDefaults()
	c.Summarizer.ApplyDefaults()
	c.Session.ApplyDefaults()
	if c.Server.MaxBodySize == "" {
		c.Server.MaxBodySize = util.FormatSize(c.Session.MaxUploadBytes() + uploadHeadroom)
	}
	c.Server.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Storage.ApplyDefaults()

	c.Observability.ServiceName = c.Name
	c.Observability.ServiceVersion = c.Version
	c.Observability.Environment = c.Environment
	c.Observability.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	checks := []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"assemblyai", c.AssemblyAI.Validate},
		{"session", c.Session.Validate},
		{"redis", c.Redis.Validate},
		{"storage", c.Storage.Validate},
	}
	for _, chk := range checks {
		if err := chk.validate(); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
	}
	if c.Summarizer.Enabled && c.Summarizer.APIKey == "" {
		return fmt.Errorf("summarizer: api_key is required when enabled")
	}
	if c.Poller.Timeout > 0 && c.Session.TTL <= c.Poller.Timeout {
		return fmt.Errorf("session.ttl (%s) must exceed poller.timeout (%s)", c.Session.TTL, c.Poller.Timeout)
	}
	if c.Session.TTL <= c.Poller.MaxInterval {
		return fmt.Errorf("session.ttl (%s) must exceed poller.max_interval (%s)", c.Session.TTL, c.Poller.MaxInterval)
	}
	if body, upload := c.Server.MaxBodyBytes(), c.Session.MaxUploadBytes(); body < upload {
		return fmt.Errorf("server.max_body_size (%s) is below session.max_upload_size (%s)",
			util.FormatSize(body), util.FormatSize(upload))
	}
	return nil
}
