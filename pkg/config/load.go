package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default, remaining zero values are
// defaulted and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration over the defaults without validating it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RELIEF_SECTION_FIELD (e.g., RELIEF_POLICY_PATH) and always take
// precedence over the file.
//
// An empty path skips the file and starts from Default.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	envInt("RELIEF_ENGINE_WORKERS", &cfg.Engine.Workers)
	envFloat("RELIEF_ENGINE_FAIRNESS_BASELINE", &cfg.Engine.FairnessBaseline)
	envInt("RELIEF_ENGINE_IMMUNITY_THRESHOLD", &cfg.Engine.ImmunityThreshold)
	envString("RELIEF_ENGINE_WEEK_START", &cfg.Engine.WeekStart)

	// Policy overrides
	envString("RELIEF_POLICY_MODE", &cfg.Policy.Mode)
	envString("RELIEF_POLICY_PATH", &cfg.Policy.Path)
	envBool("RELIEF_POLICY_WATCH", &cfg.Policy.Watch)
	envDuration("RELIEF_POLICY_DEBOUNCE", &cfg.Policy.Debounce)
	envString("RELIEF_POLICY_GIT_REPOSITORY", &cfg.Policy.Git.Repository)
	envString("RELIEF_POLICY_GIT_BRANCH", &cfg.Policy.Git.Branch)
	envString("RELIEF_POLICY_GIT_PATH", &cfg.Policy.Git.Path)
	envString("RELIEF_POLICY_GIT_AUTH_TYPE", &cfg.Policy.Git.Auth.Type)
	envString("RELIEF_POLICY_GIT_TOKEN", &cfg.Policy.Git.Auth.Token)
	envString("RELIEF_POLICY_GIT_SSH_KEY_PATH", &cfg.Policy.Git.Auth.SSHKeyPath)

	// Evidence overrides
	envBool("RELIEF_EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	envString("RELIEF_EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envString("RELIEF_EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envInt("RELIEF_EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	envString("RELIEF_EVIDENCE_RETENTION_PRUNE_SCHEDULE", &cfg.Evidence.Retention.PruneSchedule)

	// History overrides
	envString("RELIEF_HISTORY_BACKEND", &cfg.History.Backend)
	envString("RELIEF_HISTORY_PATH", &cfg.History.Path)

	// Secrets overrides
	envString("RELIEF_SECRETS_DIR", &cfg.Secrets.Dir)

	// Telemetry overrides
	envString("RELIEF_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("RELIEF_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("RELIEF_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("RELIEF_TELEMETRY_METRICS_TEXTFILE_PATH", &cfg.Telemetry.Metrics.TextfilePath)
	envBool("RELIEF_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("RELIEF_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("RELIEF_TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("RELIEF_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
