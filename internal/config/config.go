// Package config loads server settings from the environment and an optional env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/shopdash/shopdash/internal/db"
)

// Config holds every server setting.
type Config struct {
	// DatabaseURL wins over the discrete DB_* parameters when set.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME" envDefault:"shopify_analytics"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"password"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`

	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBIdleTimeout    time.Duration `env:"DB_IDLE_TIMEOUT" envDefault:"30s"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"2s"`
	DBAcquireTimeout time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"2s"`

	Port            int           `env:"PORT" envDefault:"5000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	// CORSOrigin is a single extra origin appended to CORSOrigins.
	CORSOrigin string `env:"CORS_ORIGIN"`
}

// Load reads envFile (if it exists) into the process environment, then parses
// the environment. Variables already set take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom parses settings from the given variables only.
func LoadFrom(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBIdleTimeout <= 0 || c.DBConnectTimeout <= 0 || c.DBAcquireTimeout <= 0 {
		return errors.New("database timeouts must be positive")
	}
	if c.DatabaseURL == "" && c.DBHost == "" {
		return errors.New("DATABASE_URL or DB_HOST required")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// ConnString builds the PostgreSQL connection string. A DATABASE_URL without an
// explicit sslmode gets sslmode=require, since hosted databases expect TLS.
func (c *Config) ConnString() string {
	if c.DatabaseURL != "" {
		return withSSLRequired(c.DatabaseURL)
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost + ":" + strconv.Itoa(c.DBPort),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	if c.DBSSLMode != "" {
		q.Set("sslmode", c.DBSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func withSSLRequired(dsn string) string {
	if strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " sslmode=require"
}

// PoolConfig is the database pool configuration.
func (c *Config) PoolConfig() db.PoolConfig {
	return db.PoolConfig{
		ConnString:     c.ConnString(),
		MaxConns:       c.DBMaxConns,
		IdleTimeout:    c.DBIdleTimeout,
		ConnectTimeout: c.DBConnectTimeout,
		AcquireTimeout: c.DBAcquireTimeout,
	}
}

// AllowedOrigins is the CORS allow-list with trailing slashes removed and
// duplicates dropped.
func (c *Config) AllowedOrigins() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range append(append([]string{}, c.CORSOrigins...), c.CORSOrigin) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
