// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the AgriFleet backend.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("server started")
//
// Request-scoped logging:
//
//	observability.FromContext(ctx).WithError(err).Warn("session save failed")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics()
//	metrics.LoginsTotal.WithLabelValues("success").Inc()
//	mux.Handle("/metrics", metrics.Handler())
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Graceful Shutdown
//
//	sm := observability.NewShutdownManager(logger, srv, cfg.Server.ShutdownTimeout)
//	sm.RegisterShutdownFunc(func(ctx context.Context) error { return db.Close() })
//	sm.WaitForShutdown()
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/httputil: request logging middleware
package observability
