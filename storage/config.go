package storage

import (
	"errors"
	"fmt"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"

	DefaultBasePath = "./data/transcripts"
	DefaultRegion   = "us-east-1"
)

// Config selects and configures the archive backend.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=local s3"`
	// Prefix is prepended to every object path.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`

	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`

	// EncryptionKey, when set, encrypts archived objects at rest.
	EncryptionKey string `yaml:"encryption_key" mapstructure:"encryption_key"`
	Encryption    string `yaml:"encryption" mapstructure:"encryption" validate:"omitempty,oneof=aes-256-gcm chacha20-poly1305"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.Prefix == "" {
		c.Prefix = "transcripts"
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.New("storage.base_path is required for the local provider")
		}
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, errors.New("storage.bucket is required"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("storage.region is required"))
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, errors.New("storage.access_key and storage.secret_key must be set together"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", errors.Join(errs...))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}
