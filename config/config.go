// Package config loads authcore-server settings from the environment.
//
// Every key is read from an AUTHCORE_ prefixed variable, e.g. AUTHCORE_PORT.
//
//   - PORT: HTTP port. Default: 3001
//   - STORE: fs, sqlite, postgres or datastore. Default: fs
//   - DATA_DIR: directory for the fs store. Default: backend/data
//   - DSN: database connection string for sqlite and postgres. Default: authcore.db
//   - DATASTORE_PROJECT, DATASTORE_NAMESPACE: Cloud Datastore settings
//   - BASE_URL: prefix for magic links. Default: http://localhost:<PORT>
//   - COOKIE_NAME: session cookie. Default: reweave_session
//   - OTP_TTL, MAGIC_LINK_TTL, RESET_TTL: Go durations. Defaults: 5m, 15m, 15m
//   - HIDE_SECRETS: omit dev_otp, link and dev_token from responses. Default: false
//   - LOG_LEVEL: debug, info, warn or error. Default: info
//   - GRPC_ADDR: listen address for the gRPC server; empty disables it
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               int           `mapstructure:"PORT"`
	Store              string        `mapstructure:"STORE"`
	DataDir            string        `mapstructure:"DATA_DIR"`
	DSN                string        `mapstructure:"DSN"`
	DatastoreProject   string        `mapstructure:"DATASTORE_PROJECT"`
	DatastoreNamespace string        `mapstructure:"DATASTORE_NAMESPACE"`
	BaseURL            string        `mapstructure:"BASE_URL"`
	CookieName         string        `mapstructure:"COOKIE_NAME"`
	OTPTTL             time.Duration `mapstructure:"OTP_TTL"`
	MagicLinkTTL       time.Duration `mapstructure:"MAGIC_LINK_TTL"`
	ResetTTL           time.Duration `mapstructure:"RESET_TTL"`
	HideSecrets        bool          `mapstructure:"HIDE_SECRETS"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	GRPCAddr           string        `mapstructure:"GRPC_ADDR"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("PORT", 3001)
	v.SetDefault("STORE", "fs")
	v.SetDefault("DATA_DIR", "backend/data")
	v.SetDefault("DSN", "authcore.db")
	v.SetDefault("DATASTORE_PROJECT", "")
	v.SetDefault("DATASTORE_NAMESPACE", "")
	v.SetDefault("BASE_URL", "")
	v.SetDefault("COOKIE_NAME", "reweave_session")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("MAGIC_LINK_TTL", "15m")
	v.SetDefault("RESET_TTL", "15m")
	v.SetDefault("HIDE_SECRETS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GRPC_ADDR", "")

	v.SetEnvPrefix("AUTHCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store {
	case "fs", "sqlite", "postgres":
	case "datastore":
		if c.DatastoreProject == "" {
			return fmt.Errorf("AUTHCORE_DATASTORE_PROJECT is required for the datastore store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
