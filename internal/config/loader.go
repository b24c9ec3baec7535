package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "boardroom.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "BOARDROOM_PORT")
	setString(&cfg.Server.CORSOrigin, "BOARDROOM_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "BOARDROOM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "BOARDROOM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "BOARDROOM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "BOARDROOM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "BOARDROOM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.Logging.Level, "BOARDROOM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "BOARDROOM_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "BOARDROOM_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "BOARDROOM_BREAKER_TIMEOUT")
	setBool(&cfg.Auth.Enabled, "BOARDROOM_AUTH_ENABLED")
	setInt(&cfg.Discussion.MaxRounds, "BOARDROOM_MAX_ROUNDS")
	setInt(&cfg.Discussion.HistoryWindow, "BOARDROOM_HISTORY_WINDOW")
	setString(&cfg.Discussion.OrchestratorModel, "BOARDROOM_ORCHESTRATOR_MODEL")
	setString(&cfg.Discussion.ResponderModel, "BOARDROOM_RESPONDER_MODEL")
	setString(&cfg.Discussion.ClassifierModel, "BOARDROOM_CLASSIFIER_MODEL")
	setString(&cfg.Discussion.SummaryModel, "BOARDROOM_SUMMARY_MODEL")
	setString(&cfg.Personas.File, "BOARDROOM_PERSONAS_FILE")
}

// validate rejects configurations that cannot work.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if cfg.Discussion.MaxRounds < 1 {
		return fmt.Errorf("discussion.max_rounds must be >= 1, got %d", cfg.Discussion.MaxRounds)
	}
	if cfg.Discussion.HistoryWindow < 1 {
		return fmt.Errorf("discussion.history_window must be >= 1, got %d", cfg.Discussion.HistoryWindow)
	}
	if cfg.Auth.Enabled && len(cfg.Auth.KeyHashes) == 0 {
		return fmt.Errorf("auth.enabled requires at least one entry in auth.key_hashes")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
