package provider

import (
	"context"
	"time"
)

// ContextStore persists typed state under opaque keys.
type ContextStore[C any] interface {
	// Load returns (nil, nil) for a missing or expired key.
	Load(ctx context.Context, key string) (*C, error)
	// Save stores val. A zero ttl never expires.
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
