package cache

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"
)

// RistrettoConfig sizes a RistrettoProvider. MaxCost is in bytes; each
// entry costs its encoded length.
type RistrettoConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

// RistrettoProvider is an in-process Provider backed by ristretto. Under
// memory pressure ristretto may evict or refuse entries, which callers
// observe as misses.
type RistrettoProvider struct {
	c *rc.Cache
}

// NewRistrettoProvider creates a RistrettoProvider.
func NewRistrettoProvider(cfg RistrettoConfig) (*RistrettoProvider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoProvider{c: c}, nil
}

var _ Provider = (*RistrettoProvider)(nil)

func (p *RistrettoProvider) Name() string { return "ristretto" }

func (p *RistrettoProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set waits for ristretto's write buffer to drain so the entry is visible
// to the next Get.
func (p *RistrettoProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.c.SetWithTTL(key, value, int64(len(value)), ttl)
	p.c.Wait()
	return nil
}

func (p *RistrettoProvider) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		p.c.Del(k)
	}
	p.c.Wait()
	return nil
}

func (p *RistrettoProvider) Close() error {
	p.c.Wait()
	p.c.Close()
	return nil
}
