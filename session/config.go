package session

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/util"
)

const defaultMaxUpload = 256 << 20

// Config configures session handling.
type Config struct {
	// TTL is how long an untouched session survives in the store.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// MaxConcurrentJobs caps pipelines running at once across all sessions.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs" validate:"gte=0"`
	// MaxUploadSize bounds uploaded audio, e.g. "256MB".
	MaxUploadSize string `yaml:"max_upload_size" mapstructure:"max_upload_size"`
	// ArchiveAttempts bounds writes of a finished transcript to storage.
	ArchiveAttempts int `yaml:"archive_attempts" mapstructure:"archive_attempts" validate:"gte=0"`
	// StoreTimeout bounds store and publish calls made outside a request.
	StoreTimeout time.Duration `yaml:"store_timeout" mapstructure:"store_timeout"`
	// SpoolDir holds uploads while they are relayed. Empty means os.TempDir.
	SpoolDir string `yaml:"spool_dir" mapstructure:"spool_dir"`
	// KeepAlive is the heartbeat interval of the state event stream.
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`

	Cookie CookieConfig `yaml:"cookie" mapstructure:"cookie"`
}

// CookieConfig configures the signed session cookie.
type CookieConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Secret signs session tokens. When empty a random key is generated at
	// startup, so sessions do not survive a restart.
	Secret string `yaml:"secret" mapstructure:"secret"`
	Issuer string `yaml:"issuer" mapstructure:"issuer"`
	Secure bool   `yaml:"secure" mapstructure:"secure"`
	// TTL is the token lifetime. Defaults to the session TTL.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 24 * time.Hour
	}
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 8
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "256MB"
	}
	if c.ArchiveAttempts <= 0 {
		c.ArchiveAttempts = 3
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = sse.DefaultKeepAlive
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = "transcribe_session"
	}
	if c.Cookie.Issuer == "" {
		c.Cookie.Issuer = "transcribe"
	}
	if c.Cookie.TTL <= 0 {
		c.Cookie.TTL = c.TTL
	}
}

func (c *Config) Validate() error {
	if c.TTL < time.Minute {
		return fmt.Errorf("session.ttl must be at least 1m")
	}
	if c.SpoolDir != "" {
		if fi, err := os.Stat(c.SpoolDir); err != nil || !fi.IsDir() {
			return fmt.Errorf("session.spool_dir %q is not a directory", c.SpoolDir)
		}
	}
	if s := c.Cookie.Secret; s != "" && len(s) < 32 {
		return fmt.Errorf("session.cookie.secret must be at least 32 bytes")
	}
	return nil
}

// MaxUploadBytes parses MaxUploadSize.
func (c *Config) MaxUploadBytes() int64 {
	return util.ParseSize(c.MaxUploadSize, defaultMaxUpload)
}
