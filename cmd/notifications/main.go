package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notifications/internal/config"
	"notifications/internal/domain"
	"notifications/internal/infra/auth/identity"
	"notifications/internal/infra/auth/rbac"
	"notifications/internal/infra/auth/token"
	"notifications/internal/infra/cache"
	"notifications/internal/infra/cachemem"
	"notifications/internal/infra/db"
	httpinfra "notifications/internal/infra/http"
	"notifications/internal/infra/logging"
	"notifications/internal/infra/monolith"
	"notifications/internal/infra/telemetry"
	"notifications/internal/usecase"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "event", "server_exit", "module", "cmd/notifications", "layer", "main", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := telemetry.FromConfig(cfg.MetricsEnabled)

	store, err := db.NewStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	cacheBackend, closeCache, err := buildCache(cfg, logger)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer closeCache()

	codec, err := token.NewCodec(cfg)
	if err != nil {
		return fmt.Errorf("init token codec: %w", err)
	}
	resolver, err := identity.NewClient(cfg, identity.WithLogger(logger), identity.WithObserver(metrics))
	if err != nil {
		return fmt.Errorf("init identity client: %w", err)
	}
	roles, err := rbac.NewAuthorizer(ctx, cfg.RolePolicyPath)
	if err != nil {
		return fmt.Errorf("init role policy: %w", err)
	}

	server := httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Gate: &usecase.AuthorizationGate{
			Tokens:     codec,
			Identities: resolver,
			Roles:      roles,
			Logger:     logger,
			Metrics:    metrics,
		},
		Health: &usecase.HealthAggregator{
			Service: cfg.ServiceName,
			Version: cfg.ServiceVersion,
			Probes: []domain.Probe{
				db.NewStorageProbe(store.Querier()),
				cache.NewProbe(cacheBackend, logger),
			},
			ProbeTimeout: cfg.ProbeTimeout,
			Logger:       logger,
			Metrics:      metrics,
		},
		Monolith: monolith.NewClient(cfg, codec, monolith.WithLogger(logger)),
		Metrics:  metrics,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifications service listening",
			"event", "server_start",
			"module", "cmd/notifications",
			"layer", "main",
			"addr", cfg.HTTPAddr,
			"environment", cfg.Environment,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "event", "server_shutdown", "module", "cmd/notifications", "layer", "main")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildCache returns a nil cache when redis is selected but REDIS_ADDR is
// empty; the cache probe then reports it as not configured.
func buildCache(cfg config.Config, logger *slog.Logger) (domain.Cache, func(), error) {
	noop := func() {}
	if cfg.CacheBackend == config.CacheBackendMemory {
		return cachemem.New(), noop, nil
	}
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set; cache probe will report not configured",
			"event", "cache_disabled",
			"module", "cmd/notifications",
			"layer", "main",
		)
		return nil, noop, nil
	}
	redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, noop, err
	}
	return redisCache, func() { _ = redisCache.Close() }, nil
}
