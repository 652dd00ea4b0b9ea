package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mcdev12/sumrush/go/internal/gateway"
	"github.com/mcdev12/sumrush/go/internal/publisher"
	"github.com/mcdev12/sumrush/go/internal/session"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

const (
	storeMemory   = "memory"
	storePostgres = "postgres"
	storeSQLite   = "sqlite"
)

type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
	Session session.Config `yaml:"session"`
	Gateway gateway.Config `yaml:"gateway"`
	Results ResultsConfig  `yaml:"results"`
	Events  EventsConfig   `yaml:"events"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	// Format is "console" for human-readable output or "json".
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type ResultsConfig struct {
	// Store is "memory", "postgres" (DB_* env) or "sqlite".
	Store      string `yaml:"store" env:"RESULTS_STORE"`
	SQLitePath string `yaml:"sqlite_path" env:"RESULTS_SQLITE_PATH"`
}

type EventsConfig struct {
	// Bus is "log" or "jetstream".
	Bus       string                    `yaml:"bus" env:"EVENT_BUS"`
	JetStream publisher.JetStreamConfig `yaml:"jetstream"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Session: session.DefaultConfig(),
		Gateway: gateway.DefaultConfig(),
		Results: ResultsConfig{
			Store:      storeMemory,
			SQLitePath: "sumrush.db",
		},
		Events: EventsConfig{
			Bus:       "log",
			JetStream: publisher.DefaultJetStreamConfig(),
		},
	}
}

// configPath returns CONFIG_PATH, falling back to config.yaml in the working
// directory when that file exists. An empty path means defaults plus env.
func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// loadConfig starts from the defaults, overlays the YAML file at path when
// one is given, then applies environment overrides. Variables that are unset
// or empty leave the value alone; malformed ones are an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyEnv(c *Config) error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	// Setting NATS_URL is enough to switch the bus on.
	if os.Getenv("NATS_URL") != "" && os.Getenv("EVENT_BUS") == "" {
		c.Events.Bus = "jetstream"
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Results.Store {
	case storeMemory, storePostgres, storeSQLite:
	default:
		return fmt.Errorf("unknown results store %q", c.Results.Store)
	}
	switch c.Events.Bus {
	case "log", "jetstream":
	default:
		return fmt.Errorf("unknown event bus %q", c.Events.Bus)
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if l == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return l, nil
}
