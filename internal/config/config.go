// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads gateway configuration from an optional YAML file,
// the environment, and command-line flags, in that order of precedence.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/session"
)

// Defaults.
const (
	DefaultAddr        = ":5000"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"

	// DevSessionSecret is the development fallback for SESSION_SECRET.
	// Production deployments must configure their own secret; serve warns
	// loudly when this one is in use.
	DevSessionSecret = "session secret!"
)

// envKeys maps recognized environment variables to config keys. Anything
// else in the environment is ignored.
var envKeys = map[string]string{
	"SESSION_SECRET":         "session_secret",
	"SEND_COOKIES":           "send_cookies",
	"USE_SECURE_COOKIES":     "secure_cookies",
	"BCRYPT_SALT_ROUNDS":     "bcrypt_cost",
	"SESSION_MAX_AGE":        "session_max_age",
	"DATABASE_URL":           "database_url",
	"GATEHOUSE_ADDR":         "addr",
	"GATEHOUSE_METRICS_ADDR": "metrics_addr",
	"GATEHOUSE_LOG_FORMAT":   "log_format",
	"GATEHOUSE_HASH_WORKERS": "hash_workers",
}

// Config holds the gateway configuration.
type Config struct {
	Addr        string // HTTP listen address
	MetricsAddr string // observability listen address, empty disables
	DatabaseURL string // PostgreSQL DSN for the user store
	LogFormat   string // "json" or "text"

	SessionSecret string        // HMAC secret for the session cookie
	SessionMaxAge time.Duration // absolute session lifetime
	SendCookies   bool          // issue a cookie before any session data exists
	SecureCookies bool          // require an encrypted channel for the cookie

	BcryptCost  int // bcrypt work factor
	HashWorkers int // bound on concurrent hash computations
}

// Load reads configuration. configFile may be empty; flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_INVALID").
				With("path", configFile).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(key string) string {
		return envKeys[key]
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_ENV_INVALID").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		}), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_INVALID").Wrap(err)
		}
	}

	cfg := &Config{
		Addr:          DefaultAddr,
		MetricsAddr:   DefaultMetricsAddr,
		LogFormat:     DefaultLogFormat,
		SessionSecret: DevSessionSecret,
		SessionMaxAge: session.DefaultMaxAge,
		SendCookies:   true,
		SecureCookies: false,
		BcryptCost:    auth.DefaultBcryptCost,
		HashWorkers:   auth.DefaultHashConcurrency,
	}

	if v := k.String("addr"); v != "" {
		cfg.Addr = v
	}
	if k.Exists("metrics_addr") {
		cfg.MetricsAddr = k.String("metrics_addr")
	}
	if v := k.String("database_url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := k.String("log_format"); v != "" {
		cfg.LogFormat = v
	}
	if v := k.String("session_secret"); v != "" {
		cfg.SessionSecret = v
	}

	// SEND_COOKIES: only the literal "false" disables (legacy semantics).
	if k.Exists("send_cookies") {
		cfg.SendCookies = !isLiteral(k.Get("send_cookies"), "false")
	}
	// USE_SECURE_COOKIES: only the literal "true" enables.
	if k.Exists("secure_cookies") {
		cfg.SecureCookies = isLiteral(k.Get("secure_cookies"), "true")
	}

	cfg.SessionMaxAge = coerceMaxAge(k.Get("session_max_age"), cfg.SessionMaxAge)
	cfg.BcryptCost = coercePositiveInt(k.Get("bcrypt_cost"), cfg.BcryptCost)
	cfg.HashWorkers = coercePositiveInt(k.Get("hash_workers"), cfg.HashWorkers)

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, oops.Code("CONFIG_INVALID").
			With("log_format", cfg.LogFormat).
			Errorf("log_format must be 'json' or 'text'")
	}

	return cfg, nil
}

// UsingDevSecret reports whether the development fallback secret is in use.
func (c *Config) UsingDevSecret() bool {
	return c.SessionSecret == DevSessionSecret
}

// isLiteral reports whether v is the given literal, as either a bool or
// a string.
func isLiteral(v any, want string) bool {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t) == want
	case string:
		return strings.TrimSpace(t) == want
	}
	return false
}

// coercePositiveInt accepts positive integers (or numeric strings) and
// silently falls back to def for anything else.
func coercePositiveInt(v any, def int) int {
	switch t := v.(type) {
	case nil:
		return def
	case int:
		if t > 0 {
			return t
		}
	case int64:
		if t > 0 {
			return int(t)
		}
	case float64:
		if t > 0 && t == float64(int(t)) {
			return int(t)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// coerceMaxAge accepts a Go duration string ("10m") or a bare integer
// interpreted as milliseconds, falling back to def otherwise.
func coerceMaxAge(v any, def time.Duration) time.Duration {
	switch t := v.(type) {
	case nil:
		return def
	case int:
		if t > 0 {
			return time.Duration(t) * time.Millisecond
		}
	case int64:
		if t > 0 {
			return time.Duration(t) * time.Millisecond
		}
	case float64:
		if t > 0 {
			return time.Duration(t) * time.Millisecond
		}
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
		if ms, err := strconv.Atoi(s); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}
