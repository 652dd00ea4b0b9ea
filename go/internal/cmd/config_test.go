package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mcdev12/sumrush/go/internal/gateway"
	"github.com/rs/zerolog"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "PORT", "SHUTDOWN_TIMEOUT", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
		"RESULTS_STORE", "RESULTS_SQLITE_PATH", "SESSION_IDLE_TIMEOUT", "SESSION_REAP_INTERVAL",
		"SESSION_WORKERS", "SESSION_QUEUE_SIZE", "NATS_URL", "NATS_STREAM", "EVENT_BUS",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

var ignoreFuncs = cmpopts.IgnoreFields(gateway.ConnectionConfig{}, "CheckOrigin")

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if diff := cmp.Diff(defaultConfig(), *got, ignoreFuncs); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: "9000"
log:
  level: debug
session:
  idle_timeout: 5m
  num_workers: 2
gateway:
  connection:
    ping_interval: 15s
results:
  store: postgres
`)
	t.Setenv("PORT", "9100")
	t.Setenv("NATS_URL", "nats://bus:4222")

	got, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if got.Server.Port != "9100" {
		t.Errorf("port = %q, want env override 9100", got.Server.Port)
	}
	if got.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", got.Log.Level)
	}
	if got.Session.IdleTimeout != 5*time.Minute || got.Session.NumWorkers != 2 {
		t.Errorf("session = %+v", got.Session)
	}
	if got.Session.QueueSize != 256 {
		t.Errorf("queue size = %d, want default 256 kept", got.Session.QueueSize)
	}
	if got.Gateway.ConnectionConfig.PingInterval != 15*time.Second {
		t.Errorf("ping interval = %s, want 15s", got.Gateway.ConnectionConfig.PingInterval)
	}
	if got.Results.Store != storePostgres {
		t.Errorf("store = %q, want %q", got.Results.Store, storePostgres)
	}
	if got.Events.Bus != "jetstream" || got.Events.JetStream.URL != "nats://bus:4222" {
		t.Errorf("events = %+v", got.Events)
	}
	if got.Events.JetStream.StreamName != "QUIZ_EVENTS" {
		t.Errorf("stream = %q, want default QUIZ_EVENTS", got.Events.JetStream.StreamName)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown store", env: map[string]string{"RESULTS_STORE": "redis"}},
		{name: "unknown bus", env: map[string]string{"EVENT_BUS": "kafka"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "non-numeric workers", env: map[string]string{"SESSION_WORKERS": "four"}},
		{name: "unparseable idle timeout", env: map[string]string{"SESSION_IDLE_TIMEOUT": "30 minutes"}},
		{name: "unparseable shutdown timeout", env: map[string]string{"SHUTDOWN_TIMEOUT": "soon"}},
		{name: "malformed yaml", body: "server: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}
			if _, err := loadConfig(path); err == nil {
				t.Error("loadConfig succeeded, want error")
			}
		})
	}

	clearEnv(t)
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadConfig with missing file succeeded, want error")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"trace", zerolog.TraceLevel},
	}

	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil {
			t.Errorf("parseLogLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_WORKERS", "8")
	t.Setenv("SESSION_IDLE_TIMEOUT", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("EVENT_BUS", "log")

	got, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	want := defaultConfig()
	want.Session.NumWorkers = 8
	want.Session.IdleTimeout = 90 * time.Second
	want.Server.AllowedOrigins = []string{"https://a.example", "https://b.example"}
	want.Events.JetStream.URL = "nats://bus:4222"
	if diff := cmp.Diff(want, *got, ignoreFuncs); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	if got := configPath(); got != "" {
		t.Errorf("configPath without a file = %q, want empty", got)
	}

	if err := os.WriteFile(filepath.Join(dir, defaultConfigPath), []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if got := configPath(); got != defaultConfigPath {
		t.Errorf("configPath = %q, want %q", got, defaultConfigPath)
	}
	cfg, err := loadConfig(configPath())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn from config.yaml", cfg.Log.Level)
	}

	t.Setenv("CONFIG_PATH", "elsewhere.yaml")
	if got := configPath(); got != "elsewhere.yaml" {
		t.Errorf("configPath = %q, want CONFIG_PATH value", got)
	}
}
