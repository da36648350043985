package logger

import (
	"sync"
)

var named = struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register stores a logger under name.
func Register(name string, l *Logger) {
	named.mu.Lock()
	named.loggers[name] = l
	named.mu.Unlock()
}

// Get returns the logger registered under name, or the global logger tagged
// with that component name.
func Get(name string) *Logger {
	named.mu.RLock()
	l, ok := named.loggers[name]
	named.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}
