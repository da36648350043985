package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/transcribe/provider"
)

var _ provider.ContextStore[any] = (*TypedStore[any])(nil)

// TypedStore keeps JSON-encoded values of C under prefixed keys.
type TypedStore[C any] struct {
	client *Client
	prefix string
}

// NewTypedStore namespaces keys as "<client prefix>:<name>:<key>".
func NewTypedStore[C any](client *Client, name string) *TypedStore[C] {
	prefix := name
	if p := client.KeyPrefix(); p != "" {
		prefix = p + ":" + name
	}
	return &TypedStore[C]{client: client, prefix: prefix}
}

func (s *TypedStore[C]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load returns (nil, nil) when the key does not exist.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.client.Get(ctx, s.key(key))
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}
	var v C
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("typed store decode %q: %w", key, err)
	}
	return &v, nil
}

// Save stores val; a zero ttl never expires.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed store encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl); err != nil {
		return fmt.Errorf("typed store save %q: %w", key, err)
	}
	return nil
}

func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)); err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}
