package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file on top of defaults.
// The file may specify only the sections it wants to override.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and then
// applies environment variable overrides.
//
// Precedence (highest wins):
//  1. Environment variables (AIDASH_*)
//  2. File values
//  3. Defaults
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies AIDASH_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("AIDASH_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("AIDASH_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("AIDASH_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("AIDASH_TENANT_DATABASE_PATH"); val != "" {
		cfg.Tenant.DatabasePath = val
	}
	if val := os.Getenv("AIDASH_TENANT_CACHE_BACKEND"); val != "" {
		cfg.Tenant.CacheBackend = val
	}
	if val := os.Getenv("AIDASH_TENANT_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Tenant.CacheTTL = d
		}
	}
	if val := os.Getenv("AIDASH_REDIS_ADDR"); val != "" {
		cfg.Tenant.Redis.Addr = val
	}
	if val := os.Getenv("AIDASH_REDIS_PASSWORD"); val != "" {
		cfg.Tenant.Redis.Password = val
	}
	if val := os.Getenv("AIDASH_UPSTREAM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.Timeout = d
		}
	}
	if val := os.Getenv("AIDASH_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("AIDASH_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("AIDASH_AUDIT_DATABASE_PATH"); val != "" {
		cfg.Audit.DatabasePath = val
	}
	if val := os.Getenv("AIDASH_AUDIT_RETENTION_DAYS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audit.RetentionDays = n
		}
	}
	if val := os.Getenv("AIDASH_CHAT_DATABASE_PATH"); val != "" {
		cfg.Chat.DatabasePath = val
	}
	if val := os.Getenv("AIDASH_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("AIDASH_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("AIDASH_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
