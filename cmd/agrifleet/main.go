package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/farmops/agrifleet/pkg/api"
	"github.com/farmops/agrifleet/pkg/audit"
	"github.com/farmops/agrifleet/pkg/auth"
	"github.com/farmops/agrifleet/pkg/config"
	"github.com/farmops/agrifleet/pkg/httputil"
	"github.com/farmops/agrifleet/pkg/middleware"
	"github.com/farmops/agrifleet/pkg/observability"
	"github.com/farmops/agrifleet/pkg/scheduler"
	"github.com/farmops/agrifleet/pkg/session"
	"github.com/farmops/agrifleet/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	db, err := postgres.Connect(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to connect to PostgreSQL")
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := session.NewRedisClient(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to connect to Redis")
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Stores
	var dictStore api.DictStore = postgres.NewDictStore(db, metrics)
	if cfg.Storage.CacheEnabled {
		cached, err := postgres.NewCachedDictStore(dictStore, redisClient, cfg.Storage.L1CacheSize, cfg.Storage.CacheTTL, metrics)
		if err != nil {
			logger.WithError(err).Error("failed to build dictionary cache")
			os.Exit(1)
		}
		dictStore = cached
	}

	stores := api.Stores{
		Users:           postgres.NewUserStore(db, metrics),
		Machinery:       postgres.NewMachineryStore(db, metrics),
		Farmland:        postgres.NewFarmlandStore(db, metrics),
		MaintainRecords: postgres.NewMaintainRecordStore(db, metrics),
		OperationTasks:  postgres.NewOperationTaskStore(db, metrics),
		Notifications:   postgres.NewNotificationStore(db, metrics),
		Dict:            dictStore,
		OperateLogs:     postgres.NewOperateLogStore(db, metrics),
	}

	// Authentication and sessions
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hasher := auth.NewPasswordHasher()
	sessions := session.NewStore(redisClient, cfg.Auth.SessionTTL, metrics)

	// Audit trail
	recorder := audit.NewRecorder(stores.OperateLogs, logger)

	// Middleware chain, outermost first.
	gate := middleware.NewAuthGate(issuer, stores.Users, sessions, logger, metrics, nil)
	middlewares := []mux.MiddlewareFunc{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	}
	if metrics != nil {
		middlewares = append(middlewares, mux.MiddlewareFunc(metrics.HTTPMiddleware(routeTemplate)))
	}
	middlewares = append(middlewares,
		gate.Handler,
		audit.NewMiddleware(recorder).Handler,
	)

	server := api.NewServer(api.ServerConfig{
		Stores:      stores,
		Issuer:      issuer,
		Hasher:      hasher,
		Sessions:    sessions,
		Trail:       recorder,
		Logger:      logger,
		Metrics:     metrics,
		Middlewares: middlewares,
	})

	// Background jobs
	jobs := scheduler.New(cfg.Scheduler, stores.MaintainRecords, stores.Machinery, stores.Notifications, recorder, logger, metrics)
	if err := jobs.Start(); err != nil {
		logger.WithError(err).Error("failed to start scheduler")
		os.Exit(1)
	}

	samplerDone := make(chan struct{})
	if metrics != nil {
		go sampleGauges(db, sessions, metrics, logger, samplerDone)
	}

	// Health and metrics on a separate port for probes and scraping.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	go func() {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		jobs.Stop()
		close(samplerDone)
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return redisClient.Close()
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

// sampleGauges periodically refreshes the gauges that have no natural
// event to hook: database pool usage and the active-session count.
func sampleGauges(db *sql.DB, sessions *session.Store, metrics *observability.Metrics, logger *observability.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			count, err := sessions.CountActive(ctx)
			cancel()
			if err != nil {
				logger.WithError(err).Warn("active session sampling failed")
				continue
			}
			metrics.ActiveSessionsSample.Set(float64(count))
		}
	}
}

// routeTemplate resolves the mux route template so metric labels stay
// bounded regardless of path parameters.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tmpl
}
