package boot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	LockBackendRedis  = "redis"
	LockBackendMemory = "memory"
)

type Config struct {
	Env     string `env:"ENV,default=dev"`
	DataDir string `env:"DATA_DIR,default=./data"`
	Server  struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
	}
	Database struct {
		URL string `env:"DATABASE_URL,default=file:agora.db?_busy_timeout=5000&_foreign_keys=on"`
	}
	Redis struct {
		Addr     string `env:"REDIS_ADDR,default=localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB,default=0"`
	}
	Lock struct {
		Backend string        `env:"LOCK_BACKEND,default=redis"`
		Expiry  time.Duration `env:"LOCK_EXPIRY,default=30s"`
	}
	Auth struct {
		Secret   string        `env:"JWT_SECRET"`
		TokenTTL time.Duration `env:"TOKEN_TTL,default=24h"`
	}
	Export struct {
		Workers         int           `env:"EXPORT_WORKERS,default=2"`
		Retention       time.Duration `env:"BACKUP_RETENTION,default=168h"`
		MinInterval     time.Duration `env:"BACKUP_MIN_INTERVAL,default=0s"`
		CleanupSchedule string        `env:"BACKUP_CLEANUP_SCHEDULE,default=@daily"`
	}
}

func Load() (*Config, error) {
	return LoadFrom(envconfig.OsLookuper())
}

// LoadFrom reads the configuration from lookuper instead of the process
// environment.
func LoadFrom(lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(context.Background(), config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Lock.Backend != LockBackendRedis && c.Lock.Backend != LockBackendMemory {
		return fmt.Errorf("unknown lock backend %q", c.Lock.Backend)
	}
	// redis expiries have millisecond resolution
	if c.Lock.Expiry < time.Millisecond {
		return errors.New("LOCK_EXPIRY must be at least 1ms")
	}
	if c.Export.MinInterval < 0 {
		return errors.New("BACKUP_MIN_INTERVAL must not be negative")
	}
	if c.Auth.Secret == "" && !c.IsDevelopment() {
		return errors.New("JWT_SECRET is required outside development")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}

func (c *Config) LockExpiry() time.Duration {
	return c.Lock.Expiry
}

func (c *Config) BackupRetention() time.Duration {
	return c.Export.Retention
}

func (c *Config) BackupMinInterval() time.Duration {
	return c.Export.MinInterval
}

func (c *Config) JWTSecret() []byte {
	if c.Auth.Secret == "" {
		return []byte("development-secret")
	}
	return []byte(c.Auth.Secret)
}

func (c *Config) TokenTTL() time.Duration {
	return c.Auth.TokenTTL
}
