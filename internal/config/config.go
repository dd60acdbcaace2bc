// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported values for Store.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the runtime configuration of the todo service.
type Config struct {
	Addr          string        `env:"ADDR"             envDefault:":5000"`
	Store         string        `env:"STORE"            envDefault:"mongo"`
	MongoURI      string        `env:"MONGODB_URI"`
	MongoDatabase string        `env:"MONGODB_DATABASE" envDefault:"todos"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"        envDefault:"1h"`
	AuthDisabled  bool          `env:"AUTH_DISABLED"    envDefault:"false"`
	CORSOrigin    string        `env:"CORS_ORIGIN"      envDefault:"*"`
	LogLevel      string        `env:"LOG_LEVEL"        envDefault:"info"`
	OIDC          OIDC
}

// OIDC configures the optional single sign-on login.
type OIDC struct {
	IssuerURL    string `env:"OIDC_ISSUER_URL"`
	ClientID     string `env:"OIDC_CLIENT_ID"`
	ClientSecret string `env:"OIDC_CLIENT_SECRET"`
	RedirectURL  string `env:"OIDC_REDIRECT_URL"`
}

// Enabled reports whether SSO is configured.
func (o OIDC) Enabled() bool {
	return o.IssuerURL != "" && o.ClientID != ""
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE %q", c.Store))
	}
	if !c.AuthDisabled {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required unless AUTH_DISABLED is set"))
		}
		if c.TokenTTL <= 0 {
			errs = append(errs, errors.New("TOKEN_TTL must be positive"))
		}
	}
	if c.OIDC.Enabled() && c.AuthDisabled {
		errs = append(errs, errors.New("OIDC login requires authentication to be enabled"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
