package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// ShutdownTimeout returns the graceful shutdown window as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
// URL is a PostgreSQL connection URL, or a file path (":memory:" allowed)
// when Driver is sqlite.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL                    string `mapstructure:"url" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gtfield=TokenLifetimeMinutes"`
}

// CacheConfig controls the per-user task list cache.
type CacheConfig struct {
	Enabled      bool            `mapstructure:"enabled"`
	Provider     string          `mapstructure:"provider" validate:"required,oneof=memory ristretto bigcache redis"`
	Codec        string          `mapstructure:"codec" validate:"required,oneof=json msgpack cbor"`
	TTLSeconds   int             `mapstructure:"ttl_seconds" validate:"gt=0"`
	KeyPrefix    string          `mapstructure:"key_prefix"`
	SingleFlight bool            `mapstructure:"single_flight"`
	Redis        RedisConfig     `mapstructure:"redis"`
	Ristretto    RistrettoConfig `mapstructure:"ristretto"`
	Bigcache     BigcacheConfig  `mapstructure:"bigcache"`
}

// TTL returns the entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfig configures the shared redis cache provider.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RistrettoConfig sizes the in-process ristretto cache. MaxCost is in bytes.
type RistrettoConfig struct {
	NumCounters int64 `mapstructure:"num_counters" validate:"gt=0"`
	MaxCost     int64 `mapstructure:"max_cost" validate:"gt=0"`
	BufferItems int64 `mapstructure:"buffer_items" validate:"gt=0"`
}

// BigcacheConfig sizes the in-process bigcache. Shards must be a power of two.
type BigcacheConfig struct {
	Shards             int `mapstructure:"shards" validate:"gt=0"`
	HardMaxCacheSizeMB int `mapstructure:"hard_max_cache_size_mb" validate:"gte=0"`
}
