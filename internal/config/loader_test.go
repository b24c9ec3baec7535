package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Discussion.MaxRounds != 6 {
		t.Errorf("expected max_rounds 6, got %d", cfg.Discussion.MaxRounds)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
postgres:
  max_conns: 20
logging:
  level: "debug"
discussion:
  max_rounds: 4
  responder_model: "anthropic/claude-sonnet"
notifications:
  channels:
    - provider: slack
      config:
        webhook_url: "https://hooks.slack.example/T000"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Discussion.MaxRounds != 4 {
		t.Errorf("expected max_rounds 4, got %d", cfg.Discussion.MaxRounds)
	}
	if cfg.Discussion.ResponderModel != "anthropic/claude-sonnet" {
		t.Errorf("expected responder model override, got %s", cfg.Discussion.ResponderModel)
	}
	if len(cfg.Notifications.Channels) != 1 || cfg.Notifications.Channels[0].Provider != "slack" {
		t.Errorf("expected one slack channel, got %+v", cfg.Notifications.Channels)
	}
	if cfg.Notifications.Channels[0].Config["webhook_url"] != "https://hooks.slack.example/T000" {
		t.Errorf("expected webhook_url, got %+v", cfg.Notifications.Channels[0].Config)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("BOARDROOM_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("BOARDROOM_PG_MAX_CONNS", "25")
	t.Setenv("BOARDROOM_LOG_LEVEL", "warn")
	t.Setenv("BOARDROOM_BREAKER_TIMEOUT", "1m")
	t.Setenv("BOARDROOM_MAX_ROUNDS", "3")
	t.Setenv("BOARDROOM_CLASSIFIER_MODEL", "openai/gpt-4o")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Discussion.MaxRounds != 3 {
		t.Errorf("expected max_rounds 3, got %d", cfg.Discussion.MaxRounds)
	}
	if cfg.Discussion.ClassifierModel != "openai/gpt-4o" {
		t.Errorf("expected classifier model override, got %s", cfg.Discussion.ClassifierModel)
	}
}

func TestEnvIgnoresEmptyAndMalformed(t *testing.T) {
	cfg := Defaults()

	t.Setenv("BOARDROOM_PORT", "")
	t.Setenv("BOARDROOM_PG_MAX_CONNS", "not-a-number")
	t.Setenv("BOARDROOM_BREAKER_TIMEOUT", "soon")

	loadEnv(&cfg)

	if cfg.Server.Port != "8080" {
		t.Errorf("empty env var overrode port: %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("malformed int overrode max_conns: %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("malformed duration overrode breaker timeout: %v", cfg.Breaker.Timeout)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
		},
		{
			name:   "zero max_rounds",
			modify: func(c *Config) { c.Discussion.MaxRounds = 0 },
		},
		{
			name:   "zero history_window",
			modify: func(c *Config) { c.Discussion.HistoryWindow = 0 },
		},
		{
			name:   "auth enabled without key hashes",
			modify: func(c *Config) { c.Auth.Enabled = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := validate(&cfg); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromFullHierarchy(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "boardroom.yaml")
	content := `
server:
  port: "5555"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// ENV wins over YAML for the same key.
	t.Setenv("BOARDROOM_LOG_LEVEL", "error")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "5555" {
		t.Errorf("expected port 5555 from YAML, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected ENV log level error to override YAML debug, got %s", cfg.Logging.Level)
	}
}
