package transcription

import "github.com/kbukum/transcribe/provider"

// NewRegistry creates a registry of transcription backends keyed by name.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
