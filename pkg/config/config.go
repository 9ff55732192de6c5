package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/backer/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Checkout      CheckoutConfig
	Export        ExportConfig
	Features      FeaturesConfig
	Stats         StatsConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string
	ReplicaURLs string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
}

// RedisConfig holds Redis settings. An empty URL disables the shared
// organization cache and rate limiting.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// CacheConfig sizes the organization lookup cache
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// CheckoutConfig holds checkout provider credentials. An empty key disables
// checkout sessions and provider products.
type CheckoutConfig struct {
	StripeSecretKey string
}

// ExportConfig holds the S3 destination of subscriber exports. An empty
// bucket disables uploads; exports are still streamed.
type ExportConfig struct {
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	URLExpiry      time.Duration
}

// FeaturesConfig points at the feature flag file. An empty path enables
// every flag.
type FeaturesConfig struct {
	FlagsFile string
	Watch     bool
}

// StatsConfig schedules the business gauge refresh
type StatsConfig struct {
	Schedule string
}

// AuditConfig toggles the audit trail of mutating requests
type AuditConfig struct {
	Enabled bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Cache:         loadCacheConfig(),
		Checkout:      CheckoutConfig{StripeSecretKey: getEnv("BACKER_STRIPE_SECRET_KEY", "")},
		Export:        loadExportConfig(),
		Features:      loadFeaturesConfig(),
		Stats:         StatsConfig{Schedule: getEnv("BACKER_STATS_SCHEDULE", "@every 5m")},
		Audit:         AuditConfig{Enabled: getEnvBool("BACKER_AUDIT_ENABLED", true)},
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BACKER_HOST", "0.0.0.0"),
		Port:            getEnv("BACKER_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BACKER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BACKER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("BACKER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BACKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("BACKER_MAX_BODY_BYTES", 1<<20),
		HealthPort:      getEnv("BACKER_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("BACKER_POSTGRES_URL", ""),
		ReplicaURLs: getEnv("BACKER_POSTGRES_REPLICA_URLS", ""),
		MaxConns:    getEnvInt("BACKER_POSTGRES_MAX_CONNS", 20),
		MinConns:    getEnvInt("BACKER_POSTGRES_MIN_CONNS", 2),
		Timeout:     getEnvDuration("BACKER_POSTGRES_TIMEOUT", 5*time.Second),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("BACKER_REDIS_URL", ""),
		Password:   getEnv("BACKER_REDIS_PASSWORD", ""),
		DB:         getEnvInt("BACKER_REDIS_DB", 0),
		MaxRetries: getEnvInt("BACKER_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("BACKER_REDIS_POOL_SIZE", 10),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Size: getEnvInt("BACKER_CACHE_SIZE", 1024),
		TTL:  getEnvDuration("BACKER_CACHE_TTL", time.Minute),
	}
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		S3Bucket:       getEnv("BACKER_EXPORT_S3_BUCKET", ""),
		S3Region:       getEnv("BACKER_EXPORT_S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("BACKER_EXPORT_S3_ENDPOINT", ""),
		S3AccessKey:    getEnv("BACKER_EXPORT_S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("BACKER_EXPORT_S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("BACKER_EXPORT_S3_USE_PATH_STYLE", false),
		URLExpiry:      getEnvDuration("BACKER_EXPORT_URL_EXPIRY", 15*time.Minute),
	}
}

func loadFeaturesConfig() FeaturesConfig {
	return FeaturesConfig{
		FlagsFile: getEnv("BACKER_FEATURE_FLAGS_FILE", ""),
		Watch:     getEnvBool("BACKER_FEATURE_FLAGS_WATCH", true),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("BACKER_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("BACKER_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BACKER_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BACKER_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BACKER_OTEL_SERVICE_NAME", "backer"),
		OTelServiceVersion: getEnv("BACKER_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BACKER_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("BACKER_OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required (BACKER_POSTGRES_URL)")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("postgres max conns (%d) must be at least min conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache size must be positive")
	}

	if c.Export.S3Bucket != "" && c.Export.S3Region == "" {
		return fmt.Errorf("S3 region is required when an export bucket is set")
	}
	if (c.Export.S3AccessKey == "") != (c.Export.S3SecretKey == "") {
		return fmt.Errorf("S3 access key and secret key must be set together")
	}

	if _, err := cron.ParseStandard(c.Stats.Schedule); err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", c.Stats.Schedule, err)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1, got %v", r)
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
