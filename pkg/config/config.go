package config

import "time"

// Config is the root configuration structure for the dashboard AI backend.
// It contains all configuration sections for the HTTP server, tenant
// settings resolution, the upstream AI service client, audit logging,
// conversation storage, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Auth contains the tenant authentication configuration used to bind
	// incoming requests to a tenant and user.
	Auth AuthConfig `yaml:"auth"`

	// Tenant contains configuration for the tenant settings resolver,
	// including the settings database and the settings cache.
	Tenant TenantConfig `yaml:"tenant"`

	// Upstream contains transport configuration for calls to the upstream
	// AI completion service. The per-tenant base URL, credential, and model
	// come from tenant settings, not from here.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Audit contains configuration for audit record persistence and
	// retention.
	Audit AuditConfig `yaml:"audit"`

	// Chat contains configuration for conversation and message storage.
	Chat ChatConfig `yaml:"chat"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. This bounds streamed completions too, so it should be large
	// enough for the slowest expected stream.
	// Default: 300s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for the dashboard frontend.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all
	// origins (not recommended for production).
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "PATCH", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// AuthConfig contains tenant authentication configuration.
//
// The proxy does not own identity; it consumes an authenticated binding.
// Keys map a bearer token to a tenant/user pair, which is how the
// dashboard's session layer hands authenticated traffic to this backend.
type AuthConfig struct {
	// Keys maps bearer tokens to tenant bindings.
	Keys map[string]KeyBinding `yaml:"keys"`
}

// KeyBinding binds an API key to a tenant and user.
type KeyBinding struct {
	// TenantID is the tenant the key belongs to.
	TenantID string `yaml:"tenant_id"`

	// UserID is the user the key acts as.
	UserID string `yaml:"user_id"`

	// TenantName is the display name used for prompt placeholder
	// substitution.
	TenantName string `yaml:"tenant_name"`

	// UserName is the display name used for prompt placeholder
	// substitution.
	UserName string `yaml:"user_name"`
}

// TenantConfig contains configuration for the tenant settings resolver.
type TenantConfig struct {
	// DatabasePath is the SQLite database file for tenant settings.
	// Default: "data/tenant.db"
	DatabasePath string `yaml:"database_path"`

	// CacheBackend selects the settings cache implementation.
	// Options: "memory", "redis".
	// Default: "memory"
	CacheBackend string `yaml:"cache_backend"`

	// CacheTTL is the time-to-live for cached settings values. Staleness up
	// to this bound is tolerated; writes through the resolver invalidate
	// eagerly.
	// Default: 30s
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheMaxEntries bounds the in-memory cache size (0 = unlimited).
	// Default: 10000
	CacheMaxEntries int `yaml:"cache_max_entries"`

	// Redis contains connection settings for the redis cache backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains redis connection settings.
type RedisConfig struct {
	// Addr is the redis server address ("host:port").
	// Default: "127.0.0.1:6379"
	Addr string `yaml:"addr"`

	// Password is the redis AUTH password (empty for none).
	Password string `yaml:"password"`

	// DB is the redis database number.
	// Default: 0
	DB int `yaml:"db"`
}

// UpstreamConfig contains transport configuration for the upstream client.
type UpstreamConfig struct {
	// Timeout is the maximum duration for a buffered upstream call. It is
	// not applied to streaming reads, which are bounded by the caller's
	// request context instead.
	// Default: 120s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the connection pool size.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-host connection pool size.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long idle connections are kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// AuditConfig contains configuration for audit record persistence.
type AuditConfig struct {
	// Enabled controls whether audit records are written.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit storage backend.
	// Options: "sqlite", "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// DatabasePath is the SQLite database file for audit records.
	// Default: "data/audit.db"
	DatabasePath string `yaml:"database_path"`

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxBodyBytes truncates stored request/response bodies beyond this
	// size (0 = unlimited).
	// Default: 65536
	MaxBodyBytes int `yaml:"max_body_bytes"`

	// RetentionDays is the number of days to retain audit records
	// (0 = keep forever).
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords is the maximum number of records to keep (0 = unlimited).
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// ChatConfig contains configuration for conversation and message storage.
type ChatConfig struct {
	// DatabasePath is the SQLite database file for conversations and
	// messages.
	// Default: "data/chat.db"
	DatabasePath string `yaml:"database_path"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the prometheus metric namespace.
	// Default: "aidash"
	Namespace string `yaml:"namespace"`

	// Subsystem is the prometheus metric subsystem.
	// Default: "proxy"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are the histogram buckets for completion durations,
	// in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}
