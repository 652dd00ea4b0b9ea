// Package dbconfig builds the Postgres connection string for the results store.
package dbconfig

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Database string `env:"DB_NAME" envDefault:"sumrush"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	// MaxConns caps the pgxpool size; zero keeps the pgx default.
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"0"`
	// ConnectTimeoutSec bounds each dial; zero means no limit.
	ConnectTimeoutSec int `env:"DB_CONNECT_TIMEOUT" envDefault:"5"`
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse database env: %w", err)
	}
	return c, nil
}

// DSN returns the Postgres connection URL, including the pool settings
// pgxpool reads from the query string.
func (c Config) DSN() string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	if c.ConnectTimeoutSec > 0 {
		q.Set("connect_timeout", strconv.Itoa(c.ConnectTimeoutSec))
	}
	if c.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(c.MaxConns))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}
