package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumapix/photark/pkg/accessctl"
	"github.com/lumapix/photark/pkg/cachedvalue"
	"github.com/lumapix/photark/pkg/config"
	"github.com/lumapix/photark/pkg/httputil"
	"github.com/lumapix/photark/pkg/middleware"
	"github.com/lumapix/photark/pkg/observability"
	"github.com/lumapix/photark/pkg/photosearch"
	"github.com/lumapix/photark/pkg/refdata"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Infof("Starting photark %s", cfg.Observability.OTelServiceVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
		MetricInterval: cfg.Observability.OTelMetricInterval,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// cache and rate-limit layers fail open without Redis
			logger.WithError(err).Warn("Redis unreachable at startup, continuing without it")
		} else {
			logger.Infof("Connected to Redis at %s", cfg.Redis.Addr)
		}
	}

	// Access control
	accessStore := accessctl.NewStore(db)
	resolver := accessctl.NewResolver(accessStore, accessctl.ResolverOptions{
		CacheTTL:  cfg.Access.CacheTTL,
		CacheSize: cfg.Access.CacheSize,
	})

	// Search and reference data
	searchService := photosearch.NewService(db, resolver, photosearch.ServiceOptions{
		MaxPageSize: cfg.Search.MaxPageSize,
	})
	refStore := refdata.NewStore(db)
	refService := refdata.NewService(refStore, resolver, refdata.ServiceOptions{
		CacheTTL:  cfg.RefData.CacheTTL,
		CacheSize: cfg.RefData.CacheSize,
		Redis:     redisClient,
	})

	// A revoked or widened grant must drop derived reference lists too.
	resolver.OnInvalidate(refService.InvalidateUser)
	resolver.OnInvalidateAll(func() {
		refService.InvalidateAll(context.Background())
	})

	warmer := refdata.NewWarmer(refService, warmupIdentities(accessStore), logger)
	if cfg.RefData.WarmSchedule != "" {
		if err := warmer.Start(cfg.RefData.WarmSchedule); err != nil {
			logger.WithError(err).Error("Failed to start reference-data warmer")
			os.Exit(1)
		}
		logger.Infof("Reference-data warmer scheduled: %s", cfg.RefData.WarmSchedule)
	}

	// Metrics and health
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	go pollDBStats(ctx, db, metrics)
	go pollCacheStats(ctx, metrics, resolver, refService)

	healthChecker := observability.NewHealthChecker(db, redisClient, cfg.Observability.OTelServiceVersion)
	healthServer := startHealthServer(cfg, registry, healthChecker, logger)

	router := buildRouter(cfg, logger, metrics, redisClient, searchService, refService, accessStore, resolver)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		warmer.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Close()
		}
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	go func() {
		logger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// openDatabase connects to PostgreSQL, applies pool settings, and runs
// pending migrations when configured to.
func openDatabase(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.MigrateOnStart {
		if err := accessctl.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		if err := photosearch.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Schema migrations applied")
	}

	return db, nil
}

// warmupIdentities enumerates identities whose reference lists the warmer
// precomputes: the shared admin lists plus every directly assigned user.
// Role-only holders warm lazily on their first request.
func warmupIdentities(store *accessctl.Store) refdata.IdentityLister {
	return func(ctx context.Context) ([]accessctl.Identity, error) {
		users, err := store.AssignedUsers(ctx)
		if err != nil {
			return nil, err
		}

		ids := make([]accessctl.Identity, 0, len(users)+1)
		ids = append(ids, accessctl.Identity{IsAdmin: true})
		for _, u := range users {
			ids = append(ids, accessctl.Identity{UserID: u})
		}
		return ids, nil
	}
}

// buildRouter assembles the public HTTP surface with its middleware stack.
func buildRouter(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	redisClient *redis.Client,
	searchService *photosearch.Service,
	refService *refdata.Service,
	accessStore *accessctl.Store,
	resolver *accessctl.Resolver,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)
	if cfg.Observability.MetricsEnabled {
		router.Use(observability.HTTPMetricsMiddleware(metrics))
	}
	router.Use(middleware.IdentityMiddleware(true))

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Distributed && redisClient != nil {
			router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
		} else {
			limiter := middleware.NewRateLimitMiddleware()
			limiter.StartCleanup(context.Background())
			router.Use(limiter.Handler)
		}
	}

	api := router.PathPrefix("/api").Subrouter()
	photosearch.NewHandlers(searchService).RegisterRoutes(api)
	refdata.NewHandlers(refService).RegisterRoutes(api)

	admin := api.PathPrefix("/access").Subrouter()
	admin.Use(middleware.RequireAdmin)
	accessctl.NewHandlers(accessStore, resolver).RegisterRoutes(admin)

	return router
}

// startHealthServer serves liveness, readiness, and metrics on a separate
// port so probes never compete with catalog traffic.
func startHealthServer(
	cfg *config.Config,
	registry *prometheus.Registry,
	checker *observability.HealthChecker,
	logger *observability.Logger,
) *http.Server {
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}

	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Infof("Health server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	return server
}

// pollCacheStats mirrors the in-process cache counters into Prometheus.
// Counters are cumulative on both sides, so each tick adds the delta since
// the previous one.
func pollCacheStats(
	ctx context.Context,
	metrics *observability.Metrics,
	resolver *accessctl.Resolver,
	refService *refdata.Service,
) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	last := map[string]cachedvalue.CacheStats{}
	observe := func(name string, stats cachedvalue.CacheStats) {
		prev := last[name]
		metrics.CacheHitsTotal.WithLabelValues(name).Add(float64(stats.Hits - prev.Hits))
		metrics.CacheMissesTotal.WithLabelValues(name).Add(float64(stats.Misses - prev.Misses))
		metrics.CacheEvictionsTotal.WithLabelValues(name).Add(float64(stats.Evictions - prev.Evictions))
		metrics.CacheEntries.WithLabelValues(name).Set(float64(stats.Entries))
		last[name] = stats
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observe("access_snapshots", resolver.CacheStats())
			for name, stats := range refService.CacheStats() {
				observe(name, stats)
			}
		}
	}
}

// pollDBStats mirrors connection-pool stats into Prometheus gauges.
func pollDBStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBStats(db.Stats())
		}
	}
}
