package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/todo-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewProvider builds the provider named by cfg.Provider.
//
// A redis server that does not answer at start-up is logged and tolerated:
// the client reconnects on demand, and cache failures only cost latency.
func NewProvider(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case "memory":
		return NewMemoryProvider(WithCleanupInterval(cfg.TTL())), nil
	case "", "ristretto":
		return NewRistrettoProvider(RistrettoConfig{
			NumCounters: cfg.Ristretto.NumCounters,
			MaxCost:     cfg.Ristretto.MaxCost,
			BufferItems: cfg.Ristretto.BufferItems,
		})
	case "bigcache":
		return NewBigcacheProvider(ctx, BigcacheConfig{
			LifeWindow:         cfg.TTL(),
			Shards:             cfg.Bigcache.Shards,
			HardMaxCacheSizeMB: cfg.Bigcache.HardMaxCacheSizeMB,
		})
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		p, err := NewRedisProvider(client, true)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			logger.Warn("redis cache not reachable at start-up, continuing",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()))
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown cache provider %q", cfg.Provider)
	}
}

// NewFromConfig builds a TaskListCache, including its provider and codec,
// from cfg. When cfg.Enabled is false the cache is disabled and no
// provider is created.
func NewFromConfig(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (*TaskListCache, error) {
	codec, err := NewTaskListCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	opts := Options{
		TTL:       cfg.TTL(),
		KeyPrefix: cfg.KeyPrefix,
		Codec:     codec,
		Disabled:  !cfg.Enabled,
		Logger:    logger,
	}
	if opts.Disabled {
		return New(NopProvider{}, opts)
	}

	provider, err := NewProvider(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache provider: %w", cfg.Provider, err)
	}
	return New(provider, opts)
}
