package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/transcribe/httpclient"
)

// Dialect maps the neutral request and response types to one provider's
// HTTP format.
type Dialect interface {
	Name() string
	// ChatPath is the completion endpoint, relative to the base URL.
	ChatPath() string
	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL() string
	// Auth builds the credential for apiKey.
	Auth(apiKey string) *httpclient.AuthConfig
	// Headers are fixed headers every request needs, such as API versions.
	Headers() map[string]string
	BuildRequest(req CompletionRequest) (any, error)
	ParseResponse(body []byte) (*CompletionResponse, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect makes d available to New under name. Dialect packages call
// it from init.
func RegisterDialect(name string, d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = d
}

func GetDialect(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("llm: unknown dialect %q (forgot to import driver?)", name)
	}
	return d, nil
}

// Dialects lists registered dialect names, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
