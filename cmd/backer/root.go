package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/backer/pkg/config"
	"github.com/platinummonkey/backer/pkg/observability"
	"github.com/platinummonkey/backer/pkg/storage/postgres"
)

// Version is set at build time
var Version = "dev"

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "backer",
	Short:         "Backer subscriptions service",
	Long:          "Backer serves subscription tiers, benefits, checkout sessions and subscriber analytics for organizations and their repositories.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file before reading configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")

	rootCmd.AddCommand(serveCmd, migrateCmd, collectStatsCmd, tokenCmd, cacheCmd)
}

// loadConfig reads the optional env file and then BACKER_* variables.
// A missing default .env is ignored; an explicit --env-file must exist.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
		logrus.Debug("Loaded .env")
	}
	return config.LoadConfig()
}

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName).
		WithField("version", Version)
}

func connectionConfig(cfg *config.Config) postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
	}
}

// connectRedis returns nil without error when no Redis URL is configured
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}
	return postgres.NewRedisClient(ctx, postgres.RedisConfig{
		URL:        cfg.Redis.URL,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
		PoolSize:   cfg.Redis.PoolSize,
	})
}

// primaryOnly connects to the primary database without replicas
func primaryOnly(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*postgres.ConnectionManager, error) {
	conn := connectionConfig(cfg)
	conn.ReplicaURLs = nil
	return postgres.NewConnectionManager(ctx, conn, logger)
}
