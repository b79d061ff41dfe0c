package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns the first error found.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Tenant.validate(); err != nil {
		return err
	}
	if err := c.Upstream.validate(); err != nil {
		return err
	}
	if err := c.Audit.validate(); err != nil {
		return err
	}
	if err := c.Telemetry.validate(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.ListenAddress == "" {
		return fmt.Errorf("server.listen_address must not be empty")
	}
	if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q is not a valid host:port: %w", s.ListenAddress, err)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if s.MaxHeaderBytes < 0 {
		return fmt.Errorf("server.max_header_bytes must not be negative")
	}
	return nil
}

func (t *TenantConfig) validate() error {
	if t.DatabasePath == "" {
		return fmt.Errorf("tenant.database_path must not be empty")
	}
	switch t.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("tenant.cache_backend must be \"memory\" or \"redis\", got %q", t.CacheBackend)
	}
	if t.CacheTTL < 0 {
		return fmt.Errorf("tenant.cache_ttl must not be negative")
	}
	if t.CacheBackend == "redis" && t.Redis.Addr == "" {
		return fmt.Errorf("tenant.redis.addr must not be empty when cache_backend is \"redis\"")
	}
	return nil
}

func (u *UpstreamConfig) validate() error {
	if u.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if u.MaxIdleConns < 0 || u.MaxIdleConnsPerHost < 0 {
		return fmt.Errorf("upstream connection pool sizes must not be negative")
	}
	return nil
}

func (a *AuditConfig) validate() error {
	switch a.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("audit.backend must be \"sqlite\" or \"memory\", got %q", a.Backend)
	}
	if a.Backend == "sqlite" && a.DatabasePath == "" {
		return fmt.Errorf("audit.database_path must not be empty when backend is \"sqlite\"")
	}
	if a.AsyncBuffer <= 0 {
		return fmt.Errorf("audit.async_buffer must be positive")
	}
	if a.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days must not be negative")
	}
	if a.MaxRecords < 0 {
		return fmt.Errorf("audit.max_records must not be negative")
	}
	if a.PruneSchedule != "" {
		if _, err := cron.ParseStandard(a.PruneSchedule); err != nil {
			return fmt.Errorf("audit.prune_schedule %q is not a valid cron expression: %w", a.PruneSchedule, err)
		}
	}
	return nil
}

func (t *TelemetryConfig) validate() error {
	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q", t.Logging.Level)
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be \"json\" or \"text\", got %q", t.Logging.Format)
	}
	return nil
}
