package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/transcribe/encryption"
	"github.com/kbukum/transcribe/logger"
)

// Factory builds a backend from cfg.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// RegisterFactory is called from backend init functions.
func RegisterFactory(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Providers lists registered backend names.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds the configured backend. Its package must be imported for the
// factory to be registered.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mu.RLock()
	f, ok := factories[cfg.Provider]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: provider %q is not registered", cfg.Provider)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log.Info("initializing storage", logger.Fields(logger.FieldProvider, cfg.Provider))
	s, err := f(ctx, cfg, log)
	if err != nil || cfg.EncryptionKey == "" {
		return s, err
	}
	sealer, err := encryption.New(cfg.EncryptionKey, encryption.Algorithm(cfg.Encryption))
	if err != nil {
		return nil, err
	}
	log.Info("archive encryption enabled", logger.Fields("algorithm", string(sealer.Algorithm())))
	return Sealed(s, sealer), nil
}
