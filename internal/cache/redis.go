package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNilClient is returned when a RedisProvider is built without a client.
var ErrNilClient = errors.New("redis provider: nil client")

// RedisProvider is a Provider backed by redis, shared by every server
// instance pointed at the same database.
type RedisProvider struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

// NewRedisProvider wraps client. When closeClient is true, Close also
// closes the client.
func NewRedisProvider(client goredis.UniversalClient, closeClient bool) (*RedisProvider, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisProvider{rdb: client, closeClient: closeClient}, nil
}

var _ Provider = (*RedisProvider)(nil)

func (p *RedisProvider) Name() string { return "redis" }

// Ping checks connectivity.
func (p *RedisProvider) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.rdb.Set(ctx, key, value, ttl).Err()
}

// Del removes all keys in one round trip.
func (p *RedisProvider) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return p.rdb.Del(ctx, keys...).Err()
}

func (p *RedisProvider) Close() error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
