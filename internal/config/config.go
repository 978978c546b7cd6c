// Package config loads the server configuration from the environment
// (optionally seeded from a .env file) through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"facturier/internal/core/numerator"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Lock drivers.
const (
	LockMemory   = "memory"
	LockRedis    = "redis"
	LockPostgres = "postgres"
)

// Config groups the application configuration.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	DB        DBConfig
	Redis     RedisConfig
	Lock      LockConfig
	JWT       JWTConfig
	Log       LogConfig
	Numbering NumberingConfig
}

// AppConfig holds general settings.
type AppConfig struct {
	Env string // development, staging, production
}

// IsProduction reports whether the app runs in production.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DBConfig holds the storage settings.
type DBConfig struct {
	Driver         string // postgres, memory
	URL            string
	MaxConns       int
	MigrateOnStart bool
}

// RedisConfig holds the Redis connection used by the redis lock driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig selects how invoice numbering is serialized per user.
type LockConfig struct {
	Driver string // memory, redis, postgres
	TTL    time.Duration
}

// JWTConfig holds access token validation settings.
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// NumberingConfig holds invoice numbering defaults.
type NumberingConfig struct {
	DefaultFormat numerator.Format
	MaxRetries    int
}

// Load reads the configuration. Environment variables take precedence over
// values from an optional .env file in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_DRIVER", LockMemory)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("JWT_ISSUER", "facturier")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("NUMBERING_DEFAULT_FORMAT", string(numerator.FormatStandard))
	v.SetDefault("NUMBERING_MAX_RETRIES", 3)
}

func fromViper(v *viper.Viper) (*Config, error) {
	format, err := numerator.ParseFormat(v.GetString("NUMBERING_DEFAULT_FORMAT"))
	if err != nil {
		return nil, fmt.Errorf("NUMBERING_DEFAULT_FORMAT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env: v.GetString("APP_ENV"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetInt("HTTP_PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		DB: DBConfig{
			Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
			URL:            v.GetString("DATABASE_URL"),
			MaxConns:       v.GetInt("DB_MAX_CONNS"),
			MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Lock: LockConfig{
			Driver: strings.ToLower(v.GetString("LOCK_DRIVER")),
			TTL:    v.GetDuration("LOCK_TTL"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Numbering: NumberingConfig{
			DefaultFormat: format,
			MaxRetries:    v.GetInt("NUMBERING_MAX_RETRIES"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case StoragePostgres:
		if c.DB.URL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.DB.Driver)
	}

	switch c.Lock.Driver {
	case LockMemory:
	case LockRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required when LOCK_DRIVER=redis")
		}
	case LockPostgres:
		if c.DB.Driver != StoragePostgres {
			return errors.New("LOCK_DRIVER=postgres requires STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown LOCK_DRIVER %q", c.Lock.Driver)
	}

	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.App.IsProduction() && len(c.JWT.Secret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.Numbering.MaxRetries < 0 {
		return errors.New("NUMBERING_MAX_RETRIES must not be negative")
	}
	return nil
}
