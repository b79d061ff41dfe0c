package config

import "time"

// DefaultConfig returns a configuration populated with default values.
// Loading merges file values on top of these defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   "127.0.0.1:8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    300 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
				MaxAge:         3600,
			},
		},
		Auth: AuthConfig{
			Keys: map[string]KeyBinding{},
		},
		Tenant: TenantConfig{
			DatabasePath:    "data/tenant.db",
			CacheBackend:    "memory",
			CacheTTL:        30 * time.Second,
			CacheMaxEntries: 10000,
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
				DB:   0,
			},
		},
		Upstream: UpstreamConfig{
			Timeout:             120 * time.Second,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:       true,
			Backend:       "sqlite",
			DatabasePath:  "data/audit.db",
			AsyncBuffer:   1000,
			WriteTimeout:  5 * time.Second,
			MaxBodyBytes:  64 * 1024,
			RetentionDays: 90,
			MaxRecords:    0,
			PruneSchedule: "0 3 * * *",
		},
		Chat: ChatConfig{
			DatabasePath: "data/chat.db",
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:     "info",
				Format:    "json",
				AddSource: false,
			},
			Metrics: MetricsConfig{
				Enabled:         true,
				Namespace:       "aidash",
				Subsystem:       "proxy",
				DurationBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		},
	}
}
