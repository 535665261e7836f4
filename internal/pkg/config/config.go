package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const devSessionSecret = "dev-session-secret-change-me"

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	LogFile  string `env:"LOG_FILE"`
	BaseURL  string `env:"BASE_URL,  default=http://localhost:8080"`

	Session   SessionConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Mail      MailConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
}

type SessionConfig struct {
	Secret  string        `env:"SESSION_SECRET,  default=dev-session-secret-change-me"`
	TTL     time.Duration `env:"SESSION_TTL,     default=24h"`
	Backend string        `env:"SESSION_BACKEND, default=redis"`
}

type StoreConfig struct {
	Driver     string `env:"STORE_DRIVER, default=sqlite"`
	SQLitePath string `env:"SQLITE_PATH,  default=app.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_portal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type MailConfig struct {
	Driver   string `env:"MAIL_DRIVER,   default=smtp"`
	Host     string `env:"MAIL_HOST,     default=sandbox.smtp.mailtrap.io"`
	Port     int    `env:"MAIL_PORT,     default=2525"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM,     default=from@example.com"`
	TLS      bool   `env:"MAIL_TLS,      default=true"`
	Async    bool   `env:"MAIL_ASYNC,    default=false"`
	Workers  int    `env:"MAIL_WORKERS,  default=4"`
}

type AuditConfig struct {
	File       string `env:"AUDIT_LOG_FILE,         default=logs/app.log"`
	MaxSizeMB  int    `env:"AUDIT_LOG_MAX_SIZE_MB,  default=10"`
	MaxBackups int    `env:"AUDIT_LOG_MAX_BACKUPS,  default=5"`
	MaxAgeDays int    `env:"AUDIT_LOG_MAX_AGE_DAYS, default=30"`
}

type RateLimitConfig struct {
	PerMinute float64 `env:"RATE_LIMIT_PER_MINUTE, default=20"`
	Burst     int     `env:"RATE_LIMIT_BURST,      default=10"`
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesDevSecret reports whether the session secret was left at its default.
func (c *Config) UsesDevSecret() bool {
	return c.Session.Secret == devSessionSecret
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through l, so tests can supply a map.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
