// llmserve fans batched requests in to a language model adapter and
// fans responses back out over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/api"
	"github.com/webis-de/llmserve/pkg/config"
	"github.com/webis-de/llmserve/pkg/dummyadapter"
	"github.com/webis-de/llmserve/pkg/mcpbridge"
	"github.com/webis-de/llmserve/pkg/memcache"
	"github.com/webis-de/llmserve/pkg/notify"
	"github.com/webis-de/llmserve/pkg/queue"
	"github.com/webis-de/llmserve/pkg/store"
)

const (
	shutdownGrace            = 10 * time.Second
	backpressurePollInterval = 1 * time.Second
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	envPath := flag.String("env-file", getEnv("ENV_FILE", ".env"), "path to a .env file")
	settingsPath := flag.String("settings", getEnv("SETTINGS_FILE", ""), "path to the optional YAML settings file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*envPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	settings, err := config.LoadSettings(*settingsPath)
	if err != nil {
		logger.Error("failed to load settings file", "path", *settingsPath, "error", err)
		os.Exit(1)
	}

	a, err := loadAdapter(cfg.LanguageModel, settings)
	if err != nil {
		logger.Error("failed to load adapter", "language_model", cfg.LanguageModel, "error", err)
		os.Exit(1)
	}

	if ps, ok := a.(adapter.PreferredSettings); ok {
		preferred := ps.PreferredSettings()
		cfg.ApplyAdapterDefaults(preferred.Threads, preferred.BatchSize, preferred.CacheSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, dbClient, err := buildCache(ctx, cfg.CacheSize)
	if err != nil {
		logger.Error("failed to initialize cache backend", "error", err)
		os.Exit(1)
	}
	if dbClient != nil {
		defer func() {
			if err := dbClient.Close(); err != nil {
				logger.Error("error closing database client", "error", err)
			}
		}()
	}

	notifier := notify.NewService(cfg.SlackWebhookURL)

	pool := queue.NewWorkerPool(a, cache, queue.Config{
		NumWorkers: cfg.Threads,
		BatchSize:  cfg.BatchSize,
	}, notifier)
	pool.Start(ctx)
	defer pool.Stop()

	if settings.Alerting.QueueDepthThreshold > 0 {
		go pool.MonitorBackpressure(ctx, backpressurePollInterval,
			settings.Alerting.QueueDepthThreshold, settings.Alerting.ConsecutiveSamples)
	}

	server := api.NewServer(pool, a, dbClient)

	if cfg.MCPBridgeEnabled {
		bridge := mcpbridge.New("llmserve", "0.1.0", pool)
		server.MountHandler("/mcp", bridge.Handler())
		logger.Info("MCP bridge mounted", "path", "/mcp")
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort)
		errCh <- server.Start(":" + cfg.HTTPPort)
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during HTTP shutdown", "error", err)
	}

	logger.Info("llmserve stopped")
}

// loadAdapter resolves the LANGUAGE_MODEL setting to a concrete
// adapter.Adapter. Go has no by-name module import like the original
// Python server's, so adapters are registered here by name instead.
func loadAdapter(name string, settings *config.Settings) (adapter.Adapter, error) {
	switch name {
	case "dummy":
		return dummyadapter.New(
			settings.StopStrings.Inclusive.ToRules(),
			settings.StopStrings.Exclusive.ToRules(),
		), nil
	default:
		return nil, adapter.NewUserError("unknown LANGUAGE_MODEL: " + name)
	}
}

// buildCache selects the persistent Postgres cache when DATABASE_URL is
// set, falling back to the in-process memcache.LRU otherwise (§4.9). The
// returned *store.Client is nil in the memcache case; callers only need
// it for health checks and graceful shutdown.
func buildCache(ctx context.Context, cacheSize int) (memcache.Cache, *store.Client, error) {
	storeCfg, err := store.LoadConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if !storeCfg.Enabled() {
		return memcache.New(cacheSize), nil, nil
	}

	client, err := store.NewClient(ctx, storeCfg)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresCache(client, cacheSize), client, nil
}
