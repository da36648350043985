package bootstrap

import "github.com/kbukum/transcribe/config"

// Config is satisfied by any struct embedding config.ServiceConfig that
// also applies defaults to and validates its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
