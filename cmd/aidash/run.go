package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/audit"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/chat"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/cli"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/proxy"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/server"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/telemetry/logging"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/telemetry/metrics"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/tenant"
	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dashboard AI backend",
	Long: `Start the dashboard AI backend with the specified configuration.

The server listens on the configured address and proxies completion
requests to each tenant's upstream AI service, persisting conversations
and audit records along the way.

Examples:
  # Start with default config
  aidash run

  # Start with custom config
  aidash run --config /etc/aidash/config.yaml

  # Override listen address
  aidash run --listen 0.0.0.0:8080

  # Validate config without starting the server
  aidash run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// A .env next to the binary seeds AIDASH_* overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	// Tenant settings: store plus read-through cache.
	tenantStore, err := tenant.NewSQLiteStore(cfg.Tenant.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open tenant settings store: %w", err)
	}
	defer tenantStore.Close()

	var settingsCache tenant.Cache
	switch cfg.Tenant.CacheBackend {
	case "", "memory":
		settingsCache = tenant.NewMemoryCache(cfg.Tenant.CacheTTL, cfg.Tenant.CacheMaxEntries)
	case "redis":
		settingsCache, err = tenant.NewRedisCache(ctx, cfg.Tenant.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis cache: %w", err)
		}
	default:
		return cli.NewConfigError("tenant.cache_backend",
			fmt.Sprintf("unsupported cache backend %q", cfg.Tenant.CacheBackend))
	}
	defer settingsCache.Close()

	resolver := tenant.NewResolver(tenantStore, settingsCache, cfg.Tenant.CacheTTL)

	// Conversation storage.
	chatStore, err := chat.NewSQLiteStore(cfg.Chat.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open chat store: %w", err)
	}
	defer chatStore.Close()

	// Audit storage, async recorder, and scheduled retention pruning.
	var auditStore audit.Store
	switch cfg.Audit.Backend {
	case "", "sqlite":
		auditStore, err = audit.NewSQLiteStore(cfg.Audit.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
	case "memory":
		auditStore = audit.NewMemoryStore()
	default:
		return cli.NewConfigError("audit.backend",
			fmt.Sprintf("unsupported audit backend %q", cfg.Audit.Backend))
	}
	defer auditStore.Close()

	recorder := audit.NewRecorder(auditStore, cfg.Audit)
	defer recorder.Close()

	if cfg.Audit.Enabled && cfg.Audit.PruneSchedule != "" {
		pruner := audit.NewPruner(auditStore, cfg.Audit)
		if err := pruner.Start(ctx); err != nil {
			logger.Warn("failed to start audit retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
		}
	}

	client := upstream.NewClient(cfg.Upstream)

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
		collector.ObserveAuditQueue(cfg.Telemetry.Metrics, recorder.QueueDepth)
	}

	handler := proxy.NewHandler(resolver, client, recorder, chat.NewManager(chatStore), collector)

	// Reloading the config file invalidates the settings cache so changed
	// tenant configurations take effect without waiting out the TTL.
	watcher, err := config.NewWatcher(cfgFile)
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			err := watcher.Watch(ctx, func(newCfg *config.Config) {
				if err := resolver.ClearAll(ctx); err != nil {
					logger.Warn("failed to clear settings cache on reload", "error", err)
				}
			})
			if err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	readyChecks := map[string]server.ReadyCheck{
		"tenant_db": func(ctx context.Context) error {
			_, _, err := tenantStore.Get(ctx, "readiness", "probe")
			return err
		},
		"chat_db": func(ctx context.Context) error {
			_, err := chatStore.ListConversations(ctx, "readiness", "probe", false)
			return err
		},
	}

	var metricsHandler http.Handler
	if collector != nil {
		metricsHandler = collector.Handler()
	}

	srv := server.NewServer(cfg.Server, cfg.Auth, handler, metricsHandler, readyChecks)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
