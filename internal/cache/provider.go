package cache

import (
	"context"
	"time"
)

// Provider is a byte-oriented key/value store with per-entry expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. Del removes every given key and is not an error for keys that
// are already absent.
type Provider interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

// NopProvider stores nothing. It backs a disabled cache.
type NopProvider struct{}

var _ Provider = NopProvider{}

func (NopProvider) Name() string { return "none" }

func (NopProvider) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopProvider) Del(context.Context, ...string) error { return nil }

func (NopProvider) Close() error { return nil }
