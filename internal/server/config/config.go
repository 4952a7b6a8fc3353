// Package config handles configuration for the server component: defaults,
// environment, an optional JSON file and command-line flags, applied in
// that order.
package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the authentication server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDSN: postgres:// or postgresql:// for PostgreSQL (pgx),
//     sqlite://<path> or file:<path> for SQLite.
//   - SecretKey: HMAC secret for signing access tokens (HS256). Required.
//   - AccessTokenValidityDuration: lifetime of issued tokens.
//   - BcryptCost: work factor of the password hasher.
//   - LogLevel: debug, info, warn or error.
//   - CORSAllowedOrigins: browser origins allowed to call the API.
//   - LoginRateLimit / LoginRateBurst: per-client login token bucket.
type Config struct {
	EndpointAddrHTTP            string        `env:"HTTP_ADDR"`
	DatabaseDSN                 string        `env:"DATABASE_DSN"`
	SecretKey                   string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"ACCESS_TOKEN_TTL"`
	BcryptCost                  int           `env:"BCRYPT_COST"`
	LogLevel                    string        `env:"LOG_LEVEL"`
	CORSAllowedOrigins          []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	LoginRateLimit              float64       `env:"LOGIN_RATE_LIMIT"`
	LoginRateBurst              int           `env:"LOGIN_RATE_BURST"`
}

// LoadDefaults populates Config with development defaults. SecretKey has
// no default and must be supplied.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = "sqlite://authapi.db"
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 5 * time.Minute
	c.BcryptCost = bcrypt.DefaultCost
	c.LogLevel = "info"
	c.CORSAllowedOrigins = nil
	c.LoginRateLimit = 1
	c.LoginRateBurst = 5
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	return errors.Join(errs...)
}

// LogValue implements slog.LogValuer. The secret and the DSN are redacted.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("http_addr", c.EndpointAddrHTTP),
		slog.String("database_dsn", redacted(c.DatabaseDSN)),
		slog.String("secret_key", redacted(c.SecretKey)),
		slog.Duration("access_token_ttl", c.AccessTokenValidityDuration),
		slog.Int("bcrypt_cost", c.BcryptCost),
		slog.String("log_level", c.LogLevel),
		slog.Any("cors_allowed_origins", c.CORSAllowedOrigins),
		slog.Float64("login_rate_limit", c.LoginRateLimit),
		slog.Int("login_rate_burst", c.LoginRateBurst),
	)
}

func redacted(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Load builds a Config from defaults, then the AUTHAPI_* environment, then
// the JSON file named by -c/-config in args, then the flags in args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
