package cache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"
)

// BigcacheConfig sizes a BigcacheProvider.
type BigcacheConfig struct {
	// LifeWindow is the lifetime of every entry. bigcache has no per-entry
	// TTL, so the ttl passed to Set is ignored.
	LifeWindow         time.Duration
	Shards             int
	HardMaxCacheSizeMB int
}

// BigcacheProvider is an in-process Provider backed by bigcache. Expired
// entries are evicted by a background sweep that runs every second.
type BigcacheProvider struct {
	c *bc.BigCache
}

// NewBigcacheProvider creates a BigcacheProvider.
func NewBigcacheProvider(ctx context.Context, cfg BigcacheConfig) (*BigcacheProvider, error) {
	if cfg.LifeWindow <= 0 {
		return nil, errors.New("bigcache: life window must be positive")
	}

	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.CleanWindow = time.Second
	// Initial allocation is roughly MaxEntriesInWindow * MaxEntrySize bytes.
	conf.MaxEntriesInWindow = 10_000
	conf.MaxEntrySize = 1024
	conf.Verbose = false
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}

	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &BigcacheProvider{c: c}, nil
}

var _ Provider = (*BigcacheProvider)(nil)

func (p *BigcacheProvider) Name() string { return "bigcache" }

func (p *BigcacheProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *BigcacheProvider) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	return p.c.Set(key, value)
}

func (p *BigcacheProvider) Del(_ context.Context, keys ...string) error {
	var errs []error
	for _, k := range keys {
		if err := p.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *BigcacheProvider) Close() error {
	return p.c.Close()
}
