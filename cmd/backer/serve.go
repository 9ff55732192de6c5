package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/backer/pkg/api"
	"github.com/platinummonkey/backer/pkg/async"
	"github.com/platinummonkey/backer/pkg/audit"
	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/authz"
	"github.com/platinummonkey/backer/pkg/checkout"
	"github.com/platinummonkey/backer/pkg/config"
	"github.com/platinummonkey/backer/pkg/export"
	"github.com/platinummonkey/backer/pkg/features"
	"github.com/platinummonkey/backer/pkg/middleware"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/orgs"
	"github.com/platinummonkey/backer/pkg/scope"
	"github.com/platinummonkey/backer/pkg/storage/postgres"
	"github.com/platinummonkey/backer/pkg/subscriptions"
)

const (
	replicaCheckInterval = 30 * time.Second
	statsTimeout         = time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the subscriptions API server.

The API listens on BACKER_PORT. Health probes and /metrics listen on
BACKER_HEALTH_PORT. The business gauges are refreshed on BACKER_STATS_SCHEDULE.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
			logger.WithError(err).Warn("OpenTelemetry shutdown failed")
		}
	}()

	cm, err := postgres.NewConnectionManager(ctx, connectionConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer cm.Close()

	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		logrus.Info("Connected to Redis")
	} else {
		logrus.Warn("BACKER_REDIS_URL not set: shared cache and rate limiting disabled")
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	g, gctx := errgroup.WithContext(ctx)

	deps, err := buildDeps(gctx, g, cfg, cm, redisClient, metrics, logger)
	if err != nil {
		return err
	}
	server := api.NewServer(deps)

	scheduler, err := scheduleStats(cfg, cm, metrics, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(Version).
		Require("database", observability.DatabaseCheck(cm.Primary())).
		Optional("replicas", func(ctx context.Context) (observability.DependencyStatus, error) {
			return observability.DependencyStatus{}, cm.HealthCheck(ctx)
		})
	if redisClient != nil {
		checker.Optional("redis", observability.RedisCheck(redisClient))
	}
	observability.RegisterHealthRoutes(healthMux, checker)
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		return cm.RunHealthChecks(gctx, replicaCheckInterval)
	})
	g.Go(func() error {
		logrus.WithField("addr", apiServer.Addr).Infof("Backer %s listening", Version)
		return listen(apiServer)
	})
	g.Go(func() error {
		logrus.WithField("addr", healthServer.Addr).Info("Health and metrics listening")
		return listen(healthServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(apiServer.Shutdown(shutdownCtx), healthServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logrus.Info("Server stopped")
	return nil
}

func listen(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", server.Addr, err)
	}
	return nil
}

// buildDeps wires the services behind the HTTP surface. Background work such
// as the flag file watcher joins g.
func buildDeps(ctx context.Context, g *errgroup.Group, cfg *config.Config, cm *postgres.ConnectionManager, redisClient *redis.Client, metrics *observability.Metrics, logger *observability.Logger) (api.Deps, error) {
	store := orgs.NewCachedStore(orgs.NewPostgresStore(cm.Primary()), redisClient, cacheConfig(cfg), metrics)
	authorizer := authz.NewAuthorizer(store, store)

	var provider checkout.Provider
	if cfg.Checkout.StripeSecretKey != "" {
		provider = checkout.NewStripeProvider(cfg.Checkout.StripeSecretKey)
	} else {
		logrus.Warn("BACKER_STRIPE_SECRET_KEY not set: checkout sessions disabled")
	}

	tiers := subscriptions.NewTierService(cm, authorizer, store, provider, metrics)
	deps := api.Deps{
		Tiers:         tiers,
		Benefits:      subscriptions.NewBenefitService(cm, authorizer, store, metrics),
		Subscriptions: subscriptions.NewSubscriptionService(cm, authorizer, metrics),
		Sessions:      subscriptions.NewSessionService(tiers, provider, metrics),
		Resolver:      scope.NewResolver(store),
		Authenticator: auth.NewTokenManager(cm.Primary()),
		Metrics:       metrics,
		Logger:        logger,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	}

	if cfg.Audit.Enabled {
		deps.Audit = audit.NewDBLogger(cm.Primary())
	}

	if cfg.Observability.OTelEnabled {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			return api.Deps{}, err
		}
		deps.OTelMetrics = otelMetrics
	}

	if redisClient != nil {
		deps.SessionLimiter = middleware.NewRateLimitMiddleware(redisClient, "subscribe_sessions").Handler
	}

	if cfg.Export.S3Bucket != "" {
		uploader, err := export.NewS3Uploader(ctx, export.S3Config{
			Bucket:       cfg.Export.S3Bucket,
			Region:       cfg.Export.S3Region,
			Endpoint:     cfg.Export.S3Endpoint,
			AccessKey:    cfg.Export.S3AccessKey,
			SecretKey:    cfg.Export.S3SecretKey,
			UsePathStyle: cfg.Export.S3UsePathStyle,
			URLExpiry:    cfg.Export.URLExpiry,
		})
		if err != nil {
			return api.Deps{}, err
		}
		deps.Uploader = uploader
	}

	if cfg.Features.FlagsFile != "" {
		flags, err := features.LoadFile(cfg.Features.FlagsFile)
		if err != nil {
			return api.Deps{}, err
		}
		deps.Flags = flags
		if cfg.Features.Watch {
			g.Go(func() error {
				return flags.Watch(ctx, logger)
			})
		}
		logrus.WithField("file", cfg.Features.FlagsFile).Info("Feature flags loaded")
	}

	return deps, nil
}

// scheduleStats refreshes the business gauges and pool stats on the
// configured schedule. The first run happens immediately.
func scheduleStats(cfg *config.Config, cm *postgres.ConnectionManager, metrics *observability.Metrics, logger *observability.Logger) (*cron.Cron, error) {
	c := cron.New()
	if metrics == nil {
		return c, nil
	}

	collector := subscriptions.NewCollector(cm.Replica(), metrics)
	collect := func(ctx context.Context) error {
		metrics.RecordDBStats(cm.Primary().Stats())
		_, err := collector.Collect(ctx)
		return err
	}

	bg := observability.WithLogger(context.Background(), logger)
	if _, err := c.AddFunc(cfg.Stats.Schedule, func() {
		ctx, cancel := context.WithTimeout(bg, statsTimeout)
		defer cancel()
		if err := collect(ctx); err != nil {
			logger.WithError(err).Warn("Stats collection failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", cfg.Stats.Schedule, err)
	}
	async.SafeGo(bg, statsTimeout, "initial stats collection", collect)
	return c, nil
}
