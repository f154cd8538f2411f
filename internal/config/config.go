// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

// Package config loads and validates runtime configuration.
// Precedence, lowest to highest: built-in defaults, YAML file, command
// line flags.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/authgate/authgate/internal/auth"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds the public-facing origin used in signed links.
type ServerConfig struct {
	Origin string `koanf:"origin"`
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// AuthConfig holds credential and session parameters. Keys are base64
// and must decode to at least 32 bytes.
type AuthConfig struct {
	SessionKey         string        `koanf:"session_key"`
	URLKey             string        `koanf:"url_key"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
	LinkLifetime       time.Duration `koanf:"link_lifetime"`
	ResetTokenLifetime time.Duration `koanf:"reset_token_lifetime"`
	AbsoluteTimeout    time.Duration `koanf:"absolute_timeout"`
	IdleTimeout        time.Duration `koanf:"idle_timeout"`
	ConfirmationWindow time.Duration `koanf:"confirmation_window"`
}

// MailConfig holds SMTP transport settings. When Host is empty the
// process falls back to a log-only mailer.
type MailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// LogConfig controls log output.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.origin":             "http://localhost:8080",
		"auth.bcrypt_cost":          auth.DefaultBcryptCost,
		"auth.link_lifetime":        auth.DefaultLinkLifetime,
		"auth.reset_token_lifetime": auth.DefaultResetTokenLifetime,
		"auth.absolute_timeout":     auth.DefaultAbsoluteTimeout,
		"auth.idle_timeout":         auth.DefaultIdleTimeout,
		"auth.confirmation_window":  auth.DefaultConfirmationWindow,
		"mail.port":                 587,
		"log.format":                "json",
		"log.level":                 "info",
	}
}

// Load resolves configuration from defaults, an optional YAML file,
// and command line flags, then validates the result. path may be empty
// and flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Parse(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse resolves configuration without validating it. Maintenance
// commands that only need the database DSN use this so a config file
// without key material still works.
func Parse(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_DEFAULTS_FAILED").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}
	return cfg, nil
}

// Validate checks invariants the rest of the process relies on. Key
// entropy is checked here so a weak key fails startup, not a request.
func (c *Config) Validate() error {
	errb := oops.Code("CONFIG_INVALID")

	if c.Server.Origin == "" {
		return errb.With("field", "server.origin").Errorf("origin is required")
	}
	if _, err := auth.LoadKeys(c.Auth.SessionKey, c.Auth.URLKey); err != nil {
		return err
	}
	if _, err := auth.NewBcryptHasher(c.Auth.BcryptCost); err != nil {
		return err
	}

	for field, d := range map[string]time.Duration{
		"auth.link_lifetime":        c.Auth.LinkLifetime,
		"auth.reset_token_lifetime": c.Auth.ResetTokenLifetime,
		"auth.absolute_timeout":     c.Auth.AbsoluteTimeout,
		"auth.idle_timeout":         c.Auth.IdleTimeout,
		"auth.confirmation_window":  c.Auth.ConfirmationWindow,
	} {
		if d <= 0 {
			return errb.With("field", field).Errorf("duration must be positive")
		}
	}
	return nil
}

// Keys decodes and returns the validated key material.
func (c *Config) Keys() (*auth.Keys, error) {
	return auth.LoadKeys(c.Auth.SessionKey, c.Auth.URLKey)
}
