// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks and panic recovery.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.ParseLogLevel("info"), os.Stdout)
//	logger.WithField("organization", "acme").Info("resolved scope")
//
// Request handlers use the context logger, which carries the request id,
// the user id and the active trace id:
//
//	observability.FromContext(ctx).WithError(err).Error("summary failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// HTTP metrics are labelled with the mux route template, not the raw path.
// The Record helpers accept a nil *Metrics.
//
// # Tracing
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "backer",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
//	ctx, span := observability.StartSpan(ctx, "subscriptions.Summary")
//	defer func() { observability.EndSpan(span, err) }()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version).
//		Require("database", observability.DatabaseCheck(db)).
//		Optional("redis", observability.RedisCheck(redisClient))
//	observability.RegisterHealthRoutes(mux, checker)
package observability
