package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/todo-api/internal/domain"
	"github.com/phrazzld/todo-api/internal/platform/logger"
)

// DefaultTTL is the entry lifetime used when Options.TTL is zero.
const DefaultTTL = 300 * time.Second

// Options configures a TaskListCache.
type Options struct {
	TTL       time.Duration
	KeyPrefix string
	Codec     Codec[[]domain.Task] // defaults to JSON
	Disabled  bool
	Logger    *slog.Logger
}

// TaskListCache caches each user's task listings, one entry per filter.
// It is safe for concurrent use.
type TaskListCache struct {
	provider Provider
	codec    Codec[[]domain.Task]
	ttl      time.Duration
	prefix   string
	disabled bool
	logger   *slog.Logger
	stats    counters
}

// New creates a TaskListCache storing entries in provider. A disabled cache
// ignores provider and behaves as if every read misses.
func New(provider Provider, opts Options) (*TaskListCache, error) {
	if opts.Disabled {
		provider = NopProvider{}
	}
	if provider == nil {
		return nil, errors.New("cache provider cannot be nil")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("cache TTL must not be negative, got %s", opts.TTL)
	}
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Codec == nil {
		opts.Codec = JSONCodec[[]domain.Task]{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &TaskListCache{
		provider: provider,
		codec:    opts.Codec,
		ttl:      opts.TTL,
		prefix:   opts.KeyPrefix,
		disabled: opts.Disabled,
		logger:   opts.Logger.With("component", "task_cache"),
	}, nil
}

// Key returns the storage key for a user's listing under filter.
func (c *TaskListCache) Key(userID uuid.UUID, filter domain.TaskFilter) string {
	return c.prefix + "tasks:" + userID.String() + ":" + string(filter)
}

// Get returns the cached listing, if any. Entries that cannot be decoded
// are deleted and reported as a miss; only provider failures return an error.
func (c *TaskListCache) Get(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) ([]domain.Task, bool, error) {
	key := c.Key(userID, filter)

	raw, ok, err := c.provider.Get(ctx, key)
	if err != nil {
		c.stats.errors.Add(1)
		return nil, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	if !ok {
		c.stats.misses.Add(1)
		return nil, false, nil
	}

	tasks, err := c.codec.Decode(raw)
	if err != nil {
		c.stats.errors.Add(1)
		c.stats.misses.Add(1)
		log := logger.FromContextOrDefault(ctx, c.logger)
		log.Warn("dropping undecodable cache entry",
			slog.String("key", key),
			slog.String("codec", c.codec.Name()),
			slog.String("error", err.Error()))
		if delErr := c.provider.Del(ctx, key); delErr != nil {
			log.Warn("failed to delete undecodable cache entry",
				slog.String("key", key),
				slog.String("error", delErr.Error()))
		}
		return nil, false, nil
	}

	if tasks == nil {
		tasks = []domain.Task{}
	}
	c.stats.hits.Add(1)
	return tasks, true, nil
}

// Put stores a listing for one TTL.
func (c *TaskListCache) Put(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
	tasks []domain.Task,
) error {
	if c.disabled {
		return nil
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	key := c.Key(userID, filter)
	raw, err := c.codec.Encode(tasks)
	if err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache encode %q: %w", key, err)
	}

	if err := c.provider.Set(ctx, key, raw, c.ttl); err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache set %q: %w", key, err)
	}

	c.stats.sets.Add(1)
	return nil
}

// Invalidate deletes every filter's entry for userID, whether or not any exist.
func (c *TaskListCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c.disabled {
		return nil
	}

	keys := make([]string, 0, len(domain.AllTaskFilters))
	for _, f := range domain.AllTaskFilters {
		keys = append(keys, c.Key(userID, f))
	}

	if err := c.provider.Del(ctx, keys...); err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache invalidate user %s: %w", userID, err)
	}

	c.stats.invalidations.Add(1)
	return nil
}

// Stats returns a snapshot of the cache counters.
func (c *TaskListCache) Stats() Stats {
	s := c.stats.snapshot()
	s.Enabled = !c.disabled
	s.Provider = c.provider.Name()
	s.Codec = c.codec.Name()
	s.TTLSeconds = int64(c.ttl / time.Second)
	return s
}

// TTL returns the entry lifetime.
func (c *TaskListCache) TTL() time.Duration {
	return c.ttl
}

// Close releases the provider.
func (c *TaskListCache) Close() error {
	return c.provider.Close()
}
