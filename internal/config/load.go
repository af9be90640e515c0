package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TODO_DATABASE_URL for database.url.
const EnvPrefix = "TODO"

// Load reads configuration from an optional ./config.yaml and environment
// variables. Environment variables take precedence over values from config files.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is like Load but reads the named config file instead of looking
// for ./config.yaml. A missing default file is not an error; a missing
// named file is.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers a default for every key. viper's AutomaticEnv only
// reaches keys it already knows about during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.provider", "ristretto")
	v.SetDefault("cache.codec", "json")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.key_prefix", "")
	v.SetDefault("cache.single_flight", true)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.ristretto.num_counters", 100_000)
	v.SetDefault("cache.ristretto.max_cost", 64<<20)
	v.SetDefault("cache.ristretto.buffer_items", 64)
	v.SetDefault("cache.bigcache.shards", 1024)
	v.SetDefault("cache.bigcache.hard_max_cache_size_mb", 0)
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Cache.Provider == "redis" && c.Cache.Redis.Addr == "" {
		return errors.New("invalid configuration: cache.redis.addr is required for the redis provider")
	}
	if s := c.Cache.Bigcache.Shards; s&(s-1) != 0 {
		return fmt.Errorf("invalid configuration: cache.bigcache.shards must be a power of two, got %d", s)
	}

	return nil
}
