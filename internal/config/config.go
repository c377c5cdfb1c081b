// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LEDGER_LOG_LEVEL"`       // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LEDGER_LOG_FORMAT"`     // json|console
	Sampling bool   `yaml:"sampling" env:"LEDGER_LOG_SAMPLING"` // enable sampling in prod
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"LEDGER_DB_DRIVER"` // postgres | sqlite
	URL      string `yaml:"url" env:"DATABASE_URL"`
	Path     string `yaml:"path" env:"LEDGER_SQLITE_PATH"`
	MaxConns int32  `yaml:"max_conns" env:"LEDGER_DB_MAX_CONNS"`
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"` // empty disables the attempt limiter and report cache
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	// ReportTTL bounds how stale cached reports may be.
	ReportTTL time.Duration `yaml:"report_ttl" env:"REDIS_REPORT_TTL"`
}

type APIConfig struct {
	Port           int           `yaml:"port" env:"LEDGER_API_PORT"`
	JWTSecret      string        `yaml:"jwt_secret" env:"LEDGER_JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"LEDGER_TOKEN_TTL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"LEDGER_REQUEST_TIMEOUT"`
}

// LedgerConfig holds the credit policy constants.
type LedgerConfig struct {
	InitialCredits      int64  `yaml:"initial_credits" env:"LEDGER_INITIAL_CREDITS"`
	ReferralBonus       int64  `yaml:"referral_bonus" env:"LEDGER_REFERRAL_BONUS"`
	GeneratedCodePrefix string `yaml:"generated_code_prefix" env:"LEDGER_CODE_PREFIX"`
}

type LimitsConfig struct {
	RedeemAttempts int           `yaml:"redeem_attempts" env:"LEDGER_REDEEM_ATTEMPTS"` // 0 disables
	RedeemWindow   time.Duration `yaml:"redeem_window" env:"LEDGER_REDEEM_WINDOW"`
}

type SchedulerConfig struct {
	CleanupCron string `yaml:"cleanup_cron" env:"LEDGER_CLEANUP_CRON"` // empty disables
}

type BotConfig struct {
	Token    string `yaml:"token" env:"BOT_TOKEN"` // empty logs notifications instead of sending
	Workers  int    `yaml:"workers" env:"LEDGER_WORKERS"`
	Language string `yaml:"language" env:"BOT_LANGUAGE"` // locale for notification texts
}

type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	API       APIConfig       `yaml:"api"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Limits    LimitsConfig    `yaml:"limits"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Bot       BotConfig       `yaml:"bot"`
	Tracing   TracingConfig   `yaml:"tracing"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional when empty), then applies
// .env and environment overrides, defaults and validation. The result is
// built once at startup and passed explicitly; nothing reads it globally.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Credit constants default before decoding so an explicit 0 survives.
	cfg := Config{Ledger: LedgerConfig{InitialCredits: 5, ReferralBonus: 3}}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		if cfg.Database.URL != "" {
			cfg.Database.Driver = "postgres"
		} else {
			cfg.Database.Driver = "sqlite"
		}
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "ledger.db"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.ReportTTL = normalizeTTL(cfg.Redis.ReportTTL, 30*time.Second)
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	cfg.API.TokenTTL = normalizeTTL(cfg.API.TokenTTL, 24*time.Hour)
	cfg.API.RequestTimeout = normalizeTTL(cfg.API.RequestTimeout, 5*time.Second)
	if cfg.Ledger.GeneratedCodePrefix == "" {
		cfg.Ledger.GeneratedCodePrefix = "PRO"
	}
	cfg.Limits.RedeemWindow = normalizeTTL(cfg.Limits.RedeemWindow, time.Minute)
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 4
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "credit-ledger"
	}
}

// Validate performs the minimal checks needed to start.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.API.Port > 0 && len(c.API.JWTSecret) < 16 {
		return errors.New("api.jwt_secret must be at least 16 bytes")
	}
	if c.Ledger.InitialCredits < 0 || c.Ledger.ReferralBonus < 0 {
		return errors.New("ledger credits must not be negative")
	}
	if c.Limits.RedeemAttempts < 0 {
		return errors.New("limits.redeem_attempts must not be negative")
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
