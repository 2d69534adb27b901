package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8000"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS"          envDefault:"10" validate:"min=1,max=200"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// JWTSecret signs every issued token. It is never logged.
	JWTSecret     string        `env:"JWT_SECRET_KEY,required" validate:"required,min=32"`
	JWTMaxAgeMins int           `env:"JWT_MAXAGE"              envDefault:"60" validate:"min=1,max=43200"`
	JWTLeeway     time.Duration `env:"JWT_LEEWAY"              envDefault:"0s" validate:"min=0"`
	BcryptCost    int           `env:"BCRYPT_COST"             envDefault:"10" validate:"min=4,max=31"`
	CookieSecure  bool          `env:"COOKIE_SECURE"           envDefault:"false"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// JWTMaxAge is the lifetime of an issued token.
func (c *Config) JWTMaxAge() time.Duration {
	return time.Duration(c.JWTMaxAgeMins) * time.Minute
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
