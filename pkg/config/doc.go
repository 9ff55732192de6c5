// Package config loads the service configuration from BACKER_* environment
// variables.
//
// # Overview
//
//	BACKER_PORT="8080"
//	BACKER_HEALTH_PORT="9090"
//	BACKER_POSTGRES_URL="postgres://localhost/backer?sslmode=disable"
//	BACKER_POSTGRES_REPLICA_URLS="postgres://replica1/backer,postgres://replica2/backer"
//	BACKER_REDIS_URL="redis://localhost:6379/0"
//	BACKER_STRIPE_SECRET_KEY="sk_test_..."
//	BACKER_EXPORT_S3_BUCKET="backer-exports"
//	BACKER_FEATURE_FLAGS_FILE="/etc/backer/flags.yaml"
//	BACKER_STATS_SCHEDULE="@every 5m"
//	BACKER_AUDIT_ENABLED="true"
//	BACKER_LOG_LEVEL="info"  # debug, info, warn, error
//	BACKER_OTEL_ENABLED="true"
//
// Only BACKER_POSTGRES_URL is required. Optional integrations are disabled
// when their setting is empty: Redis, Stripe, the S3 export bucket and the
// flag file.
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		logrus.Fatal(err)
//	}
package config
