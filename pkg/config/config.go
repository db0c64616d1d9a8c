package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "beat22"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv         = "BEAT22_APP_ENV"
	EnvLogLevel       = "BEAT22_LOG_LEVEL"
	EnvStorageBackend = "BEAT22_STORAGE_BACKEND"
	EnvStorageDir     = "BEAT22_STORAGE_DIR"
	EnvDBPath         = "BEAT22_DB_PATH"
	EnvRedisURL       = "BEAT22_REDIS_URL"
	EnvCatalogPath    = "BEAT22_CATALOG_PATH"
)

const (
	StorageBackendMemory = "memory"
	StorageBackendFile   = "file"
	StorageBackendSQLite = "sqlite"
	StorageBackendRedis  = "redis"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	DB       DBConfig
	Redis    RedisConfig
	Playback PlaybackConfig
	Payment  PaymentConfig
	Catalog  CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BEAT22_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BEAT22_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BEAT22_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "prod")
}

type StorageConfig struct {
	Backend string `envconfig:"BEAT22_STORAGE_BACKEND" default:"file"`
	Dir     string `envconfig:"BEAT22_STORAGE_DIR" default:".beat22"`
}

func (s StorageConfig) validate(cfg Config) error {
	switch strings.ToLower(s.Backend) {
	case StorageBackendMemory:
	case StorageBackendFile:
		if s.Dir == "" {
			return fmt.Errorf("%s is required for the file backend", EnvStorageDir)
		}
	case StorageBackendSQLite:
		if cfg.DB.Path == "" {
			return fmt.Errorf("%s is required for the sqlite backend", EnvDBPath)
		}
	case StorageBackendRedis:
		if cfg.Redis.URL == "" && cfg.Redis.Address == "" {
			return fmt.Errorf("%s is required for the redis backend", EnvRedisURL)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
	return nil
}

type DBConfig struct {
	Path        string `envconfig:"BEAT22_DB_PATH" default:"beat22.db"`
	AutoMigrate bool   `envconfig:"BEAT22_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"BEAT22_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"BEAT22_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"BEAT22_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BEAT22_REDIS_URL"`
	Address      string        `envconfig:"BEAT22_REDIS_ADDR"`
	Password     string        `envconfig:"BEAT22_REDIS_PASSWORD"`
	DB           int           `envconfig:"BEAT22_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BEAT22_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BEAT22_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BEAT22_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BEAT22_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BEAT22_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PlaybackConfig struct {
	DefaultVolume      float64 `envconfig:"BEAT22_PLAYBACK_DEFAULT_VOLUME" default:"0.7"`
	FallbackPreviewURL string  `envconfig:"BEAT22_PLAYBACK_FALLBACK_PREVIEW_URL"`
}

type PaymentConfig struct {
	Currency       string        `envconfig:"BEAT22_PAYMENT_CURRENCY" default:"INR"`
	SimulatedDelay time.Duration `envconfig:"BEAT22_PAYMENT_SIMULATED_DELAY" default:"0s"`
	AutoConfirm    bool          `envconfig:"BEAT22_PAYMENT_AUTO_CONFIRM" default:"true"`
}

type CatalogConfig struct {
	Path string `envconfig:"BEAT22_CATALOG_PATH"`
}
